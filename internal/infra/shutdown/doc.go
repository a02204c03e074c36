// Package shutdown runs named cleanup hooks when the process is asked to
// stop.
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait(ctx) // SIGINT, SIGTERM, Trigger or ctx cancellation
//
// Hooks run in reverse registration order, so resources opened first are
// released last.
package shutdown
