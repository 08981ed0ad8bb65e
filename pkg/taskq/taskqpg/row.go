package taskqpg

import (
	"encoding/json"
	"time"

	"github.com/taskrelay/taskrelay/pkg/taskq"
)

// jobRow is the persistence shape of a job; args, kwargs, meta and result
// are stored as jsonb.
type jobRow struct {
	ID         string     `db:"id"`
	FuncRef    string     `db:"func_ref"`
	Args       []byte     `db:"args"`
	Kwargs     []byte     `db:"kwargs"`
	Queue      string     `db:"queue"`
	TimeoutMS  int64      `db:"timeout_ms"`
	Status     string     `db:"status"`
	Meta       []byte     `db:"meta"`
	Result     []byte     `db:"result"`
	Error      string     `db:"error"`
	EnqueuedAt time.Time  `db:"enqueued_at"`
	StartedAt  *time.Time `db:"started_at"`
	EndedAt    *time.Time `db:"ended_at"`
}

func toRow(info *taskq.JobInfo) (*jobRow, error) {
	args, err := marshalOptional(info.Args)
	if err != nil {
		return nil, pgErrors.NewWithCause(ErrMarshal, err)
	}
	kwargs, err := marshalOptional(info.Kwargs)
	if err != nil {
		return nil, pgErrors.NewWithCause(ErrMarshal, err)
	}
	meta, err := marshalOptional(info.Meta)
	if err != nil {
		return nil, pgErrors.NewWithCause(ErrMarshal, err)
	}

	return &jobRow{
		ID:         info.ID.String(),
		FuncRef:    info.FuncRef,
		Args:       args,
		Kwargs:     kwargs,
		Queue:      info.Queue,
		TimeoutMS:  info.Timeout.Milliseconds(),
		Status:     info.Status.String(),
		Meta:       meta,
		Result:     info.Result,
		Error:      info.Error,
		EnqueuedAt: info.EnqueuedAt,
		StartedAt:  info.StartedAt,
		EndedAt:    info.EndedAt,
	}, nil
}

func fromRow(row *jobRow) (*taskq.JobInfo, error) {
	info := &taskq.JobInfo{
		ID:         taskq.JobID(row.ID),
		FuncRef:    row.FuncRef,
		Queue:      row.Queue,
		Timeout:    time.Duration(row.TimeoutMS) * time.Millisecond,
		Status:     taskq.Status(row.Status),
		Result:     row.Result,
		Error:      row.Error,
		EnqueuedAt: row.EnqueuedAt,
		StartedAt:  row.StartedAt,
		EndedAt:    row.EndedAt,
	}

	if len(row.Args) > 0 {
		if err := json.Unmarshal(row.Args, &info.Args); err != nil {
			return nil, pgErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", row.ID)
		}
	}
	if len(row.Kwargs) > 0 {
		if err := json.Unmarshal(row.Kwargs, &info.Kwargs); err != nil {
			return nil, pgErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", row.ID)
		}
	}
	if len(row.Meta) > 0 {
		if err := json.Unmarshal(row.Meta, &info.Meta); err != nil {
			return nil, pgErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", row.ID)
		}
	}

	return info, nil
}

// marshalOptional keeps empty collections as SQL NULL instead of "null".
func marshalOptional(v any) ([]byte, error) {
	switch t := v.(type) {
	case []any:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}
