package taskq

import "context"

type metaWriterKey struct{}

// MetaWriter publishes metadata for the job currently being executed.
type MetaWriter func(meta map[string]any) error

func withMetaWriter(ctx context.Context, w MetaWriter) context.Context {
	return context.WithValue(ctx, metaWriterKey{}, w)
}

// SetJobMeta attaches metadata (e.g. progress) to the job being executed by
// the surrounding worker. Outside a worker-managed handler it is a no-op,
// so handlers stay testable as plain functions.
func SetJobMeta(ctx context.Context, meta map[string]any) error {
	w, ok := ctx.Value(metaWriterKey{}).(MetaWriter)
	if !ok || w == nil {
		return nil
	}
	return w(meta)
}
