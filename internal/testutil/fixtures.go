// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/dalemusser/identitymongo/internal/app/system/normalize"
	"github.com/dalemusser/identitymongo/internal/domain/models"
)

// Fixtures seeds users and roles through an identity Context.
type Fixtures[K comparable] struct {
	t    *testing.T
	db   *identityctx.Context[K]
	keys keyconv.Converter[K]
}

// NewFixtures returns fixtures writing through db.
func NewFixtures[K comparable](t *testing.T, db *identityctx.Context[K], keys keyconv.Converter[K]) *Fixtures[K] {
	t.Helper()
	return &Fixtures[K]{t: t, db: db, keys: keys}
}

// NewKey returns a fresh key, failing the test if the type has no generator.
func (f *Fixtures[K]) NewKey() K {
	f.t.Helper()
	k, err := f.keys.New()
	if err != nil {
		f.t.Fatalf("generate key: %v", err)
	}
	return k
}

// NewUser builds an unsaved user with normalized name and email.
func (f *Fixtures[K]) NewUser(userName, email string) *models.User[K] {
	f.t.Helper()
	u := models.NewUser(f.NewKey(), userName)
	u.NormalizedUserName = normalize.UserName(userName)
	u.Email = email
	u.NormalizedEmail = normalize.Email(email)
	u.SecurityStamp = "stamp-" + userName
	return u
}

// CreateUser inserts a user and returns it.
func (f *Fixtures[K]) CreateUser(ctx context.Context, userName, email string) *models.User[K] {
	f.t.Helper()
	u := f.NewUser(userName, email)
	f.db.Users().Add(u)
	if _, err := f.db.SaveChanges(ctx); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateRole inserts a role and returns it.
func (f *Fixtures[K]) CreateRole(ctx context.Context, name string) *models.Role[K] {
	f.t.Helper()
	r := models.NewRole(f.NewKey(), name)
	r.NormalizedName = normalize.RoleName(name)
	f.db.Roles().Add(r)
	if _, err := f.db.SaveChanges(ctx); err != nil {
		f.t.Fatalf("failed to create test role: %v", err)
	}
	return r
}
