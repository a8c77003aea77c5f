// internal/app/store/roles/rolestore.go
package rolestore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dalemusser/identitymongo/internal/app/store/audit"
	"github.com/dalemusser/identitymongo/internal/app/store/identityctx"
	"github.com/dalemusser/identitymongo/internal/app/system/auditlog"
	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/dalemusser/identitymongo/internal/app/system/normalize"
	"github.com/dalemusser/identitymongo/internal/app/system/storemetrics"
	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const metricsName = "roles"

// Options carries the optional collaborators of a Store.
type Options struct {
	Describer identity.ErrorDescriber
	Logger    *zap.Logger
	Audit     *auditlog.Logger
	Metrics   *storemetrics.Metrics
}

// Store persists roles through an identity Context. It follows the same
// rules as the user store: writes flush when AutoSaveChanges is on, stale
// stamps yield a failed Result, and every call fails after Close.
type Store[K comparable] struct {
	db        *identityctx.Context[K]
	keys      keyconv.Converter[K]
	describer identity.ErrorDescriber
	log       *zap.Logger
	audit     *auditlog.Logger
	metrics   *storemetrics.Metrics

	autoSave atomic.Bool
	disposed atomic.Bool
}

// New returns a Store over db with AutoSaveChanges on.
func New[K comparable](db *identityctx.Context[K], keys keyconv.Converter[K], opts Options) *Store[K] {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store[K]{
		db:        db,
		keys:      keys,
		describer: opts.Describer,
		log:       log,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
	}
	s.autoSave.Store(true)
	return s
}

// Roles is the queryable set of role documents.
func (s *Store[K]) Roles() *identityctx.Set[models.Role[K], K] { return s.db.Roles() }

func (s *Store[K]) AutoSaveChanges() bool      { return s.autoSave.Load() }
func (s *Store[K]) SetAutoSaveChanges(on bool) { s.autoSave.Store(on) }

// Close disposes the store.
func (s *Store[K]) Close() error {
	s.disposed.Store(true)
	return nil
}

func (s *Store[K]) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.disposed.Load() {
		return identity.ErrDisposed
	}
	return nil
}

func (s *Store[K]) checkRole(ctx context.Context, role *models.Role[K]) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("%w: role", identity.ErrInvalidArgument)
	}
	return nil
}

func (s *Store[K]) saveChanges(ctx context.Context) (bool, error) {
	if !s.autoSave.Load() {
		return false, nil
	}
	if _, err := s.db.SaveChanges(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Create registers role and saves it, filling in a zero id when the key
// type has a generator.
func (s *Store[K]) Create(ctx context.Context, role *models.Role[K]) (identity.Result, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return identity.Result{}, err
	}
	var zero K
	if role.ID == zero {
		id, err := s.keys.New()
		if err != nil {
			return identity.Result{}, fmt.Errorf("%w: role id: %v", identity.ErrInvalidArgument, err)
		}
		role.ID = id
	}
	if role.ConcurrencyStamp == "" {
		role.ConcurrencyStamp = uuid.NewString()
	}
	if role.NormalizedName == "" {
		role.NormalizedName = normalize.RoleName(role.Name)
	}

	done := s.metrics.Track(metricsName, "create")
	s.db.Roles().Add(role)
	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		return identity.Result{}, err
	}
	if saved {
		s.audit.RoleCreated(ctx, s.keys.Format(role.ID), role.Name)
	}
	return identity.Success, nil
}

// Update regenerates the concurrency stamp and saves role.
func (s *Store[K]) Update(ctx context.Context, role *models.Role[K]) (identity.Result, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return identity.Result{}, err
	}

	done := s.metrics.Track(metricsName, "update")
	s.db.Roles().Attach(role)
	role.ConcurrencyStamp = uuid.NewString()
	s.db.Roles().Update(role)

	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		return s.conflictResult(ctx, role, "update", err)
	}
	if saved {
		s.audit.RoleUpdated(ctx, s.keys.Format(role.ID), role.Name)
	}
	return identity.Success, nil
}

// Delete removes role. Users keep any reference to its key; GetRoles skips
// keys that no longer resolve.
func (s *Store[K]) Delete(ctx context.Context, role *models.Role[K]) (identity.Result, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return identity.Result{}, err
	}

	done := s.metrics.Track(metricsName, "delete")
	s.db.Roles().Remove(role)

	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		return s.conflictResult(ctx, role, "delete", err)
	}
	if saved {
		s.audit.RoleDeleted(ctx, s.keys.Format(role.ID), role.Name)
	}
	return identity.Success, nil
}

func (s *Store[K]) conflictResult(ctx context.Context, role *models.Role[K], op string, err error) (identity.Result, error) {
	if !errors.Is(err, identityctx.ErrConcurrencyConflict) {
		return identity.Result{}, err
	}
	id := s.keys.Format(role.ID)
	s.log.Warn("role write rejected", zap.String("op", op), zap.String("role_id", id), zap.Error(err))
	s.audit.ConcurrencyFailure(ctx, audit.SubjectRole, id, op)
	return identity.Failed(s.describer.ConcurrencyFailure()), nil
}

// FindByID parses roleID and loads that role, or returns nil.
func (s *Store[K]) FindByID(ctx context.Context, roleID string) (*models.Role[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	id, err := s.keys.Parse(roleID)
	if err != nil {
		return nil, fmt.Errorf("%w: role id: %v", identity.ErrInvalidArgument, err)
	}
	r, err := s.db.Roles().Find(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}
	return s.db.Roles().Track(r), nil
}

// FindByName returns the role with normalizedName, or nil. More than one
// match returns identity.ErrMultipleMatches.
func (s *Store[K]) FindByName(ctx context.Context, normalizedName string) (*models.Role[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	roles, err := s.db.Roles().Where(ctx, "normalized_name", normalizedName, 2)
	if err != nil {
		return nil, err
	}
	switch len(roles) {
	case 0:
		return nil, nil
	case 1:
		return s.db.Roles().Track(roles[0]), nil
	default:
		return nil, fmt.Errorf("%w: role %q", identity.ErrMultipleMatches, normalizedName)
	}
}

// GetRoleID returns role's key in string form.
func (s *Store[K]) GetRoleID(ctx context.Context, role *models.Role[K]) (string, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return "", err
	}
	return s.keys.Format(role.ID), nil
}

func (s *Store[K]) GetRoleName(ctx context.Context, role *models.Role[K]) (string, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return "", err
	}
	return role.Name, nil
}

func (s *Store[K]) SetRoleName(ctx context.Context, role *models.Role[K], name string) error {
	if err := s.checkRole(ctx, role); err != nil {
		return err
	}
	role.Name = name
	return nil
}

func (s *Store[K]) GetNormalizedRoleName(ctx context.Context, role *models.Role[K]) (string, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return "", err
	}
	return role.NormalizedName, nil
}

func (s *Store[K]) SetNormalizedRoleName(ctx context.Context, role *models.Role[K], normalizedName string) error {
	if err := s.checkRole(ctx, role); err != nil {
		return err
	}
	role.NormalizedName = normalizedName
	return nil
}
