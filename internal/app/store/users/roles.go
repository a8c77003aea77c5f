// internal/app/store/users/roles.go
package userstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
)

func checkRoleName(normalizedRoleName string) error {
	if strings.TrimSpace(normalizedRoleName) == "" {
		return fmt.Errorf("%w: normalized role name is empty", identity.ErrInvalidArgument)
	}
	return nil
}

// findRole resolves a normalized role name, or returns nil.
func (s *Store[K]) findRole(ctx context.Context, normalizedRoleName string) (*models.Role[K], error) {
	roles, err := s.db.Roles().Where(ctx, "normalized_name", normalizedRoleName, 2)
	if err != nil {
		return nil, err
	}
	switch len(roles) {
	case 0:
		return nil, nil
	case 1:
		return roles[0], nil
	default:
		return nil, fmt.Errorf("%w: role %q", identity.ErrMultipleMatches, normalizedRoleName)
	}
}

// AddToRole adds the role named normalizedRoleName to user. The role must
// exist; an unknown name returns identity.ErrRoleNotFound and leaves the
// user untouched.
func (s *Store[K]) AddToRole(ctx context.Context, user *models.User[K], normalizedRoleName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if err := checkRoleName(normalizedRoleName); err != nil {
		return err
	}
	role, err := s.findRole(ctx, normalizedRoleName)
	if err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("%w: %s", identity.ErrRoleNotFound, normalizedRoleName)
	}
	_, err = user.AddRole(role.ID)
	return err
}

// RemoveFromRole drops the role named normalizedRoleName from user. An
// unknown role name is a no-op.
func (s *Store[K]) RemoveFromRole(ctx context.Context, user *models.User[K], normalizedRoleName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if err := checkRoleName(normalizedRoleName); err != nil {
		return err
	}
	role, err := s.findRole(ctx, normalizedRoleName)
	if err != nil || role == nil {
		return err
	}
	_, err = user.RemoveRole(role.ID)
	return err
}

// GetRoles returns the names of the roles user references. Keys with no
// matching role document are skipped.
func (s *Store[K]) GetRoles(ctx context.Context, user *models.User[K]) ([]string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	if len(user.Roles) == 0 {
		return []string{}, nil
	}
	roles, err := s.db.Roles().In(ctx, "_id", user.Roles)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// IsInRole reports whether the stored copy of user references the role
// named normalizedRoleName. Unsaved role changes are not seen.
func (s *Store[K]) IsInRole(ctx context.Context, user *models.User[K], normalizedRoleName string) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	if err := checkRoleName(normalizedRoleName); err != nil {
		return false, err
	}
	role, err := s.findRole(ctx, normalizedRoleName)
	if err != nil || role == nil {
		return false, err
	}
	return s.FindUserRole(ctx, user.ID, role.ID)
}

// FindUserRole reports whether the stored user userID references roleID.
// Embedded role lists are matched client-side over the whole collection.
func (s *Store[K]) FindUserRole(ctx context.Context, userID, roleID K) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	users, err := s.allUsers(ctx)
	if err != nil {
		return false, err
	}
	for _, u := range users {
		if u.ID == userID && u.HasRole(roleID) {
			return true, nil
		}
	}
	return false, nil
}

// GetUsersInRole returns the users referencing the role named
// normalizedRoleName, or an empty list when no such role exists. The role
// key is matched server-side against the roles array.
func (s *Store[K]) GetUsersInRole(ctx context.Context, normalizedRoleName string) ([]*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if err := checkRoleName(normalizedRoleName); err != nil {
		return nil, err
	}
	role, err := s.findRole(ctx, normalizedRoleName)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return []*models.User[K]{}, nil
	}
	users, err := s.db.Users().Where(ctx, "roles", role.ID, 0)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User[K]{}
	}
	return users, nil
}
