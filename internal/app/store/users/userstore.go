// internal/app/store/users/userstore.go
package userstore

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
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const metricsName = "users"

// Options carries the optional collaborators of a Store. The zero value
// is usable: no audit trail, no metrics, a no-op logger.
type Options struct {
	Describer identity.ErrorDescriber
	Logger    *zap.Logger
	Audit     *auditlog.Logger
	Metrics   *storemetrics.Metrics
}

// Store persists users, with their embedded roles, claims, logins, and
// tokens, through an identity Context.
//
// Mutating helpers (AddClaims, AddToRole, SetToken, ...) change only the
// user passed in. Nothing is written until Create, Update, or Delete runs,
// and then only if AutoSaveChanges is on; otherwise the caller flushes the
// Context itself.
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

// New returns a Store over db. keys converts the string ids exchanged with
// callers to K. AutoSaveChanges starts on.
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

// Context is the unit of work the store writes through.
func (s *Store[K]) Context() *identityctx.Context[K] { return s.db }

// Users is the queryable set of user documents.
func (s *Store[K]) Users() *identityctx.Set[models.User[K], K] { return s.db.Users() }

// AutoSaveChanges reports whether Create, Update, and Delete flush the
// Context immediately.
func (s *Store[K]) AutoSaveChanges() bool { return s.autoSave.Load() }

// SetAutoSaveChanges turns automatic flushing on or off.
func (s *Store[K]) SetAutoSaveChanges(on bool) { s.autoSave.Store(on) }

// Close disposes the store. Every later call returns identity.ErrDisposed.
// The Context is owned by the caller and is left alone.
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

func (s *Store[K]) checkUser(ctx context.Context, user *models.User[K]) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user", identity.ErrInvalidArgument)
	}
	return nil
}

// saveChanges flushes the Context when AutoSaveChanges is on and reports
// whether it did.
func (s *Store[K]) saveChanges(ctx context.Context) (bool, error) {
	if !s.autoSave.Load() {
		return false, nil
	}
	if _, err := s.db.SaveChanges(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Create registers user and saves it. A zero id is filled in when the key
// type has a generator. Persistence errors, duplicate keys included, are
// returned as they are.
func (s *Store[K]) Create(ctx context.Context, user *models.User[K]) (identity.Result, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return identity.Result{}, err
	}

	var zero K
	if user.ID == zero {
		id, err := s.keys.New()
		if err != nil {
			return identity.Result{}, fmt.Errorf("%w: user id: %v", identity.ErrInvalidArgument, err)
		}
		user.ID = id
	}
	if user.ConcurrencyStamp == "" {
		user.ConcurrencyStamp = uuid.NewString()
	}
	// managers normally set these; fill blanks so lookups still match
	if user.NormalizedUserName == "" {
		user.NormalizedUserName = normalize.UserName(user.UserName)
	}
	if user.NormalizedEmail == "" && user.Email != "" {
		user.NormalizedEmail = normalize.Email(user.Email)
	}

	done := s.metrics.Track(metricsName, "create")
	s.db.Users().Add(user)
	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		if wafflemongo.IsDup(err) {
			s.log.Warn("user create rejected: duplicate key", zap.String("user_id", s.keys.Format(user.ID)))
		}
		return identity.Result{}, err
	}

	if saved {
		s.log.Debug("user created", zap.String("user_id", s.keys.Format(user.ID)))
		s.audit.UserCreated(ctx, s.keys.Format(user.ID), user.UserName)
	}
	return identity.Success, nil
}

// Update regenerates the concurrency stamp and saves user. A stale stamp
// yields a failed Result carrying the describer's concurrency failure;
// any other persistence error is returned.
func (s *Store[K]) Update(ctx context.Context, user *models.User[K]) (identity.Result, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return identity.Result{}, err
	}

	done := s.metrics.Track(metricsName, "update")
	s.db.Users().Attach(user)
	user.ConcurrencyStamp = uuid.NewString()
	s.db.Users().Update(user)

	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		return s.conflictResult(ctx, user, "update", err)
	}

	if saved {
		s.log.Debug("user updated", zap.String("user_id", s.keys.Format(user.ID)))
		s.audit.UserUpdated(ctx, s.keys.Format(user.ID), user.UserName)
	}
	return identity.Success, nil
}

// Delete removes user. Concurrency failures are reported as for Update.
// Embedded claims, logins, and tokens go with the document.
func (s *Store[K]) Delete(ctx context.Context, user *models.User[K]) (identity.Result, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return identity.Result{}, err
	}

	done := s.metrics.Track(metricsName, "delete")
	s.db.Users().Remove(user)

	saved, err := s.saveChanges(ctx)
	done(storemetrics.ResultOf(err))
	if err != nil {
		return s.conflictResult(ctx, user, "delete", err)
	}

	if saved {
		s.log.Debug("user deleted", zap.String("user_id", s.keys.Format(user.ID)))
		s.audit.UserDeleted(ctx, s.keys.Format(user.ID), user.UserName)
	}
	return identity.Success, nil
}

func (s *Store[K]) conflictResult(ctx context.Context, user *models.User[K], op string, err error) (identity.Result, error) {
	if !errors.Is(err, identityctx.ErrConcurrencyConflict) {
		return identity.Result{}, err
	}
	id := s.keys.Format(user.ID)
	s.log.Warn("user write rejected", zap.String("op", op), zap.String("user_id", id), zap.Error(err))
	s.audit.ConcurrencyFailure(ctx, audit.SubjectUser, id, op)
	return identity.Failed(s.describer.ConcurrencyFailure()), nil
}

// FindByID parses userID and loads that user, or returns nil.
func (s *Store[K]) FindByID(ctx context.Context, userID string) (*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	id, err := s.keys.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id: %v", identity.ErrInvalidArgument, err)
	}
	return s.FindUser(ctx, id)
}

// FindUser returns the user with the native key id, or nil. The result
// is tracked by the store's Context, so repeated lookups and the token
// operations share one instance.
func (s *Store[K]) FindUser(ctx context.Context, id K) (*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	u, err := s.db.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.track(u), nil
}

// FindByName returns the first user with normalizedUserName, or nil.
func (s *Store[K]) FindByName(ctx context.Context, normalizedUserName string) (*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	users, err := s.db.Users().Where(ctx, "normalized_user_name", normalizedUserName, 1)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return s.track(users[0]), nil
}

// FindByEmail returns the user with normalizedEmail, or nil. Email must be
// unique: two matches return identity.ErrMultipleMatches.
func (s *Store[K]) FindByEmail(ctx context.Context, normalizedEmail string) (*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	users, err := s.db.Users().Where(ctx, "normalized_email", normalizedEmail, 2)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return s.track(users[0]), nil
	default:
		s.log.Error("email is not unique", zap.String("normalized_email", normalizedEmail))
		return nil, fmt.Errorf("%w: email %q", identity.ErrMultipleMatches, normalizedEmail)
	}
}

// track resolves u to the instance the Context tracks for its id.
func (s *Store[K]) track(u *models.User[K]) *models.User[K] {
	if u == nil {
		return nil
	}
	return s.db.Users().Track(u)
}

// allUsers loads every user for the lookups that filter embedded lists
// client-side. Cost grows with the collection; see FindByLogin.
func (s *Store[K]) allUsers(ctx context.Context) ([]*models.User[K], error) {
	return s.db.Users().All(ctx)
}
