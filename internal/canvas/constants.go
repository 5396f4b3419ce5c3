// constants.go — Orchestrator tuning constants.
package canvas

const (
	// activityLogSize bounds the circular activity log used for operator
	// debugging.
	activityLogSize = 50
)
