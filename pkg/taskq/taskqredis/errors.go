package taskqredis

import "github.com/taskrelay/taskrelay/pkg/errx"

var redisErrors = errx.NewRegistry("TASKQ_REDIS")

var (
	ErrConnect   = redisErrors.Register("CONNECT", errx.TypeExternal, 502, "Failed to connect to Redis")
	ErrEnqueue   = redisErrors.Register("ENQUEUE", errx.TypeExternal, 502, "Redis enqueue failed")
	ErrDequeue   = redisErrors.Register("DEQUEUE", errx.TypeExternal, 502, "Redis dequeue failed")
	ErrGetJob    = redisErrors.Register("GET_JOB", errx.TypeExternal, 502, "Redis get job failed")
	ErrCancel    = redisErrors.Register("CANCEL", errx.TypeExternal, 502, "Redis cancel failed")
	ErrComplete  = redisErrors.Register("COMPLETE", errx.TypeExternal, 502, "Redis complete failed")
	ErrFail      = redisErrors.Register("FAIL", errx.TypeExternal, 502, "Redis fail failed")
	ErrSetMeta   = redisErrors.Register("SET_META", errx.TypeExternal, 502, "Redis meta update failed")
	ErrNotFound  = redisErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Job not found in Redis")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)
