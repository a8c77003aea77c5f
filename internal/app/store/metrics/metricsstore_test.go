package metricsstore_test

import (
	"context"
	"testing"

	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	metricsstore "github.com/dalemusser/identitymongo/internal/app/store/metrics"
	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/dalemusser/identitymongo/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFetchCounts_Empty(t *testing.T) {
	db := identityctx.NewMemory[primitive.ObjectID](identityctx.NewMemoryDB(), identityctx.Options{}, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts := metricsstore.FetchCounts(ctx, db)

	if counts.Users != 0 {
		t.Errorf("Users: got %d, want 0", counts.Users)
	}
	if counts.Roles != 0 {
		t.Errorf("Roles: got %d, want 0", counts.Roles)
	}
}

func TestFetchCounts_WithData(t *testing.T) {
	db := identityctx.NewMemory[primitive.ObjectID](identityctx.NewMemoryDB(), identityctx.Options{}, nil)
	fixtures := testutil.NewFixtures[primitive.ObjectID](t, db, keyconv.ObjectID{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "one", "one@example.com")
	fixtures.CreateUser(ctx, "two", "two@example.com")
	fixtures.CreateUser(ctx, "three", "three@example.com")
	fixtures.CreateRole(ctx, "Admins")

	counts := metricsstore.FetchCounts(ctx, db)

	if counts.Users != 3 {
		t.Errorf("Users: got %d, want 3", counts.Users)
	}
	if counts.Roles != 1 {
		t.Errorf("Roles: got %d, want 1", counts.Roles)
	}
}

func TestFetchCounts_ToleratesErrors(t *testing.T) {
	db := identityctx.NewMemory[primitive.ObjectID](identityctx.NewMemoryDB(), identityctx.Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	counts := metricsstore.FetchCounts(ctx, db)
	if counts != (metricsstore.Counts{}) {
		t.Errorf("expected zero counts, got %+v", counts)
	}
}

func TestFetchCounts_Mongo(t *testing.T) {
	mdb := testutil.SetupTestDB(t)
	db := identityctx.NewMongo[primitive.ObjectID](mdb, identityctx.Options{}, nil)
	fixtures := testutil.NewFixtures[primitive.ObjectID](t, db, keyconv.ObjectID{})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "one", "one@example.com")

	if counts := metricsstore.FetchCounts(ctx, db); counts.Users != 1 {
		t.Errorf("Users: got %d, want 1", counts.Users)
	}
}
