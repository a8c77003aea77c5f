// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	rolestore "github.com/dalemusser/identitymongo/internal/app/store/roles"
	userstore "github.com/dalemusser/identitymongo/internal/app/store/users"
	"github.com/dalemusser/identitymongo/internal/app/system/storemetrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Key is the user and role key type this service stores.
type Key = primitive.ObjectID

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Identity *identityctx.Context[Key]
	Users    *userstore.Store[Key]
	Roles    *rolestore.Store[Key]
	Audit    *audit.Store

	Registry *prometheus.Registry
	Metrics  *storemetrics.Metrics
}
