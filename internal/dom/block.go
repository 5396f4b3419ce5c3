// block.go — Block predicate for excluding canvases from capture.
package dom

// IsBlocked reports whether a canvas is excluded from capture.
//
// An element is blocked when it carries blockClass or matches blockSelector.
// unblockSelector overrides both: an element matching it is never blocked.
// Empty strings disable the corresponding rule.
func IsBlocked(c *Canvas, blockClass, blockSelector, unblockSelector string) bool {
	if c == nil {
		return true
	}
	if unblockSelector != "" && c.MatchesSelector(unblockSelector) {
		return false
	}
	if blockClass != "" && c.HasClass(blockClass) {
		return true
	}
	if blockSelector != "" && c.MatchesSelector(blockSelector) {
		return true
	}
	return false
}
