// errors.go — Error-channel forwarding for asynchronous failure paths.
// The contract requires continuing operation for other canvases, so failures
// are funneled to the injected handler instead of propagating into callers.
package canvas

// fail forwards err to the injected error handler. Nil errors and a nil
// handler are ignored; failures never propagate into the capture path.
func (m *Manager) fail(err error) {
	if err == nil || m.onError == nil {
		return
	}
	m.onError(err)
}
