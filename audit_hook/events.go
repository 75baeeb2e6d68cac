package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionRunStarted    = "run.started"
	ActionStepCompleted = "run.step_completed"
	ActionStepRetrying  = "run.step_retrying"
	ActionStepFailed    = "run.step_failed"
	ActionRunCompleted  = "run.completed"
	ActionRunFailed     = "run.failed"
	ActionQueryAnswered = "query.answered"
)

// Audit event categories group related actions.
const (
	CategoryRun   = "berth.run"
	CategoryQuery = "berth.query"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceRun   = "pipeline_run"
	ResourceQuery = "query"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRunStarted,
		ActionStepCompleted,
		ActionStepRetrying,
		ActionStepFailed,
		ActionRunCompleted,
		ActionRunFailed,
		ActionQueryAnswered,
	}
}
