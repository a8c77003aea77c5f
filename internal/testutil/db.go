// internal/testutil/db.go
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/system/bsonkeys"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoURIEnv names the environment variable that enables Mongo-backed tests.
const MongoURIEnv = "IDENTITYMONGO_TEST_MONGO_URI"

// TestContext returns a context bounded for a single test step.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB connects to the MongoDB named by MongoURIEnv and returns a
// scratch database that is dropped when the test ends. The test is
// skipped when the variable is unset or the server cannot be reached.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB test", MongoURIEnv)
	}

	ctx, cancel := TestContext()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(bsonkeys.Registry()))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo ping failed: %v", err)
	}

	db := client.Database("identitymongo_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
