// Package ext defines the extension system for berth.
//
// Extensions are notified of lifecycle events and can react to them:
// recording metrics, writing audit rows, forwarding events. Each lifecycle
// hook is a separate interface so extensions opt in only to the events
// they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnRunCompleted(ctx context.Context, r *pipeline.Run, elapsed time.Duration) error {
//	    log.Printf("run %s completed in %s", r.WorkflowID, elapsed)
//	    return nil
//	}
//
// # Pipeline Lifecycle Hooks
//
//   - [RunStarted]: a pipeline run began
//   - [StepCompleted]: a step finished successfully
//   - [StepRetrying]: a step attempt failed and will be retried
//   - [StepFailed]: a step failed terminally
//   - [RunCompleted]: a run finished successfully
//   - [RunFailed]: a run failed terminally
//
// # Other Hooks
//
//   - [QueryAnswered]: a natural-language query was answered
//   - [Shutdown]: the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hook errors are logged and
// never affect the run.
package ext
