// internal/app/store/identityctx/backend.go
package identityctx

import "context"

// Collection is the storage a Set reads from and SaveChanges writes to.
// Lookups that find nothing return nil without an error.
type Collection[T any, K comparable] interface {
	FindID(ctx context.Context, id K) (*T, error)
	FindEq(ctx context.Context, field string, value any, limit int64) ([]*T, error)
	FindIn(ctx context.Context, field string, values []K) ([]*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	Count(ctx context.Context) (int64, error)

	Insert(ctx context.Context, doc *T) error
	// Replace and Delete only match when the stored StampField equals
	// stamp; ok is false when nothing matched.
	Replace(ctx context.Context, id K, stamp string, doc *T) (ok bool, err error)
	Delete(ctx context.Context, id K, stamp string) (ok bool, err error)
}
