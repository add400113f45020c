package idempotency

import "context"

// Store deduplicates externally-retried write requests by a caller-supplied
// key. CheckAndMark is the atomic check-then-mark used by the write path:
// under concurrent retries with the same key at most one caller sees
// alreadyProcessed=false. Forget releases a reservation when the guarded
// operation fails, so the client can retry with the same key.
type Store interface {
	IsProcessed(ctx context.Context, key string) (bool, error)
	MarkProcessed(ctx context.Context, key string) error
	CheckAndMark(ctx context.Context, key string) (alreadyProcessed bool, err error)
	Forget(ctx context.Context, key string) error
}
