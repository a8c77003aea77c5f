// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
)

// Counts is the set of document totals reported by the health endpoint.
type Counts struct {
	Users int64 `json:"users"`
	Roles int64 `json:"roles"`
}

// FetchCounts returns the user and role totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts[K comparable](ctx context.Context, db *identityctx.Context[K]) Counts {
	var out Counts

	if n, err := db.Users().Count(ctx); err == nil {
		out.Users = n
	}
	if n, err := db.Roles().Count(ctx); err == nil {
		out.Roles = n
	}

	return out
}
