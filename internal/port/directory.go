package port

import "context"

// Directory resolves identifiers owned by other systems to display names.
type Directory interface {
	UserName(ctx context.Context, id string) (string, error)
	UnitName(ctx context.Context, id string) (string, error)
}
