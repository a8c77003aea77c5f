// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

Email and user name indexes are deliberately not unique: the stores detect
duplicate emails at lookup time instead.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, names identityctx.Options) error {
	if names.UsersCollection == "" {
		names.UsersCollection = identityctx.DefaultUsersCollection
	}
	if names.RolesCollection == "" {
		names.RolesCollection = identityctx.DefaultRolesCollection
	}

	var problems []string

	if err := ensureUsers(ctx, db.Collection(names.UsersCollection)); err != nil {
		problems = append(problems, names.UsersCollection+": "+err.Error())
	}
	if err := ensureRoles(ctx, db.Collection(names.RolesCollection)); err != nil {
		problems = append(problems, names.RolesCollection+": "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db.Collection(audit.CollectionName)); err != nil {
		problems = append(problems, audit.CollectionName+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isUnique(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if wafflemongo.IsDup(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

// desired is one index model with its options unpacked.
type desired struct {
	model  mongo.IndexModel
	name   string
	unique bool
	sig    string
}

func unpack(m mongo.IndexModel) desired {
	d := desired{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = isUnique(m.Options.Unique)
	}
	return d
}

func listBySig(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// create builds d, explaining unique-index failures caused by existing
// duplicates.
func create(ctx context.Context, coll *mongo.Collection, d desired) error {
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if d.unique && isDuplicateKeyErr(err) {
			return fmt.Errorf("%s(%s): cannot create unique index (duplicates present on %s)", coll.Name(), d.name, d.sig)
		}
		return fmt.Errorf("%s(%s): %w", coll.Name(), d.name, err)
	}
	return nil
}

// replace drops ex and builds d in its place.
func replace(ctx context.Context, coll *mongo.Collection, ex existingIndex, d desired) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("%s(%s): drop %s failed: %w", coll.Name(), d.name, ex.Name, err)
	}
	return create(ctx, coll, d)
}

// reconcile makes one desired index exist with the right name and options.
func reconcile(ctx context.Context, coll *mongo.Collection, existing map[string]existingIndex, d desired) error {
	ex, ok := existing[d.sig]
	switch {
	case !ok:
		err := create(ctx, coll, d)
		if err == nil || !isOptionsConflictErr(err) {
			return err
		}
		// someone else built the same keys under other options; reload and retry
		fresh, lerr := listBySig(ctx, coll)
		if lerr != nil {
			return err
		}
		ex, ok = fresh[d.sig]
		if !ok {
			return err
		}
		if isUnique(ex.Unique) == d.unique {
			return nil
		}
		return replace(ctx, coll, ex, d)

	case isUnique(ex.Unique) != d.unique:
		// options mismatch (e.g., upgrading to unique)
		return replace(ctx, coll, ex, d)

	case d.name != "" && ex.Name != d.name:
		zap.L().Info("renaming index to align with desired name",
			zap.String("collection", coll.Name()),
			zap.String("from", ex.Name),
			zap.String("to", d.name),
			zap.String("keys", d.sig))
		return replace(ctx, coll, ex, d)

	default:
		return nil
	}
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listBySig(ctx, coll)
	if err != nil {
		// a collection that does not exist yet lists as empty on most servers
		zap.L().Warn("listing indexes failed", zap.String("collection", coll.Name()), zap.Error(err))
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		d := unpack(m)
		start := time.Now()

		if err := reconcile(ctx, coll, existing, d); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("keys", d.sig),
				zap.Bool("unique", d.unique),
				zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, c *mongo.Collection) error {
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// FindByName
		{
			Keys:    bson.D{{Key: "normalized_user_name", Value: 1}},
			Options: options.Index().SetName("idx_users_normalized_user_name"),
		},
		// FindByEmail (limit 2 to detect duplicates)
		{
			Keys:    bson.D{{Key: "normalized_email", Value: 1}},
			Options: options.Index().SetName("idx_users_normalized_email"),
		},
		// GetUsersInRole: multikey over the embedded role keys
		{
			Keys:    bson.D{{Key: "roles", Value: 1}},
			Options: options.Index().SetName("idx_users_roles"),
		},
		// Embedded logins and claims; lookups filter client-side today, the
		// indexes keep a server-side query cheap for operators and future use.
		{
			Keys: bson.D{
				{Key: "logins.login_provider", Value: 1},
				{Key: "logins.provider_key", Value: 1},
			},
			Options: options.Index().SetName("idx_users_logins_provider_key"),
		},
		{
			Keys: bson.D{
				{Key: "claims.claim_type", Value: 1},
				{Key: "claims.claim_value", Value: 1},
			},
			Options: options.Index().SetName("idx_users_claims_type_value"),
		},
	})
}

func ensureRoles(ctx context.Context, c *mongo.Collection) error {
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized_name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_roles_normalized_name"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, c *mongo.Collection) error {
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Query by time range (most recent first)
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		// Query by subject
		{
			Keys: bson.D{
				{Key: "subject", Value: 1},
				{Key: "subject_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_subject_time"),
		},
		// Query by event type
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_time"),
		},
	})
}
