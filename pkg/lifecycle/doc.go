// Package lifecycle provides the server state machine.
//
// A Manager tracks the state of a long-running component, emits an event on
// every transition and tracks the goroutines started on the component's
// behalf so shutdown can wait for them with a deadline.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, emitter)
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "start requested"); err != nil {
//	    return err
//	}
//	manager.Go(func() { serve(ctx) })
//	_ = manager.TransitionTo(lifecycle.StateRunning, "listeners bound")
//
//	// Graceful shutdown
//	_ = manager.TransitionTo(lifecycle.StateStopping, "stop requested")
//	cancel()
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
