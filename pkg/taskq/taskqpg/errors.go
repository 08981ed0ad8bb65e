package taskqpg

import "github.com/taskrelay/taskrelay/pkg/errx"

var pgErrors = errx.NewRegistry("TASKQ_PG")

var (
	ErrConnect   = pgErrors.Register("CONNECT", errx.TypeExternal, 502, "Failed to connect to Postgres")
	ErrSchema    = pgErrors.Register("SCHEMA", errx.TypeExternal, 502, "Failed to apply queue schema")
	ErrEnqueue   = pgErrors.Register("ENQUEUE", errx.TypeExternal, 502, "Postgres enqueue failed")
	ErrDequeue   = pgErrors.Register("DEQUEUE", errx.TypeExternal, 502, "Postgres dequeue failed")
	ErrGetJob    = pgErrors.Register("GET_JOB", errx.TypeExternal, 502, "Postgres get job failed")
	ErrCancel    = pgErrors.Register("CANCEL", errx.TypeExternal, 502, "Postgres cancel failed")
	ErrComplete  = pgErrors.Register("COMPLETE", errx.TypeExternal, 502, "Postgres complete failed")
	ErrFail      = pgErrors.Register("FAIL", errx.TypeExternal, 502, "Postgres fail failed")
	ErrSetMeta   = pgErrors.Register("SET_META", errx.TypeExternal, 502, "Postgres meta update failed")
	ErrNotFound  = pgErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Job not found in Postgres")
	ErrMarshal   = pgErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = pgErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)
