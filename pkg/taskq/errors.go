package taskq

import "github.com/taskrelay/taskrelay/pkg/errx"

var taskqErrors = errx.NewRegistry("TASKQ")

var (
	ErrJobNotFound    = taskqErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrInvalidJob     = taskqErrors.Register("INVALID_JOB", errx.TypeValidation, 400, "Invalid job definition")
	ErrInvalidJobID   = taskqErrors.Register("INVALID_JOB_ID", errx.TypeValidation, 400, "Invalid job ID")
	ErrEnqueueFailed  = taskqErrors.Register("ENQUEUE_FAILED", errx.TypeExternal, 502, "Failed to enqueue job")
	ErrStatusFailed   = taskqErrors.Register("STATUS_FAILED", errx.TypeExternal, 502, "Failed to get job status")
	ErrMetaFailed     = taskqErrors.Register("META_FAILED", errx.TypeExternal, 502, "Failed to get job metadata")
	ErrCancelFailed   = taskqErrors.Register("CANCEL_FAILED", errx.TypeExternal, 502, "Failed to cancel job")
	ErrResultFailed   = taskqErrors.Register("RESULT_FAILED", errx.TypeExternal, 502, "Failed to get job result")
	ErrNotFinished    = taskqErrors.Register("NOT_FINISHED", errx.TypeConflict, 409, "Job has not finished yet")
	ErrNoHandler      = taskqErrors.Register("NO_HANDLER", errx.TypeValidation, 400, "No handler registered for function reference")
	ErrAlreadyRunning = taskqErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Worker is already running")
)
