package contract

import "errors"

var (
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrPromptMissing        = errors.New("required prompt is missing")
	ErrValidation           = errors.New("validation failed")
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
	ErrPlanParse            = errors.New("plan parse failed")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrToolExecution        = errors.New("tool execution failed")
	ErrMemoryUnavailable    = errors.New("memory store unavailable")
)

// ToolExecutionError is returned once a task has exhausted its attempts.
// Error reports the last underlying message unchanged.
type ToolExecutionError struct {
	Tool     ToolID
	Attempts int
	Err      error
}

func (e *ToolExecutionError) Error() string {
	if e == nil || e.Err == nil {
		return ErrToolExecution.Error()
	}
	return e.Err.Error()
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

func (e *ToolExecutionError) Is(target error) bool {
	return target == ErrToolExecution
}
