package port

import "context"

type IdempotencyGuard interface {
	// SetIdempotency claims key, returns false if it is already claimed
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees key so a failed call can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}

type NameCache interface {
	GetName(ctx context.Context, kind, id string) (string, bool, error)
	SetName(ctx context.Context, kind, id, name string) error
}
