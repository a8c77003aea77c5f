// internal/app/store/users/logins.go
package userstore

import (
	"context"
	"fmt"

	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
)

// AddLogin links an external login to user. A login with the same
// provider and key is left as it is.
func (s *Store[K]) AddLogin(ctx context.Context, user *models.User[K], login *models.UserLoginInfo) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if login == nil {
		return fmt.Errorf("%w: login", identity.ErrInvalidArgument)
	}
	_, err := user.AddLogin(login)
	return err
}

// RemoveLogin unlinks the login for loginProvider/providerKey from user.
func (s *Store[K]) RemoveLogin(ctx context.Context, user *models.User[K], loginProvider, providerKey string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	entry := user.GetUserLogin(loginProvider, providerKey)
	if entry == nil {
		return nil
	}
	info := entry.Info()
	_, err := user.RemoveLogin(&info)
	return err
}

// GetLogins returns user's external logins.
func (s *Store[K]) GetLogins(ctx context.Context, user *models.User[K]) ([]models.UserLoginInfo, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	out := make([]models.UserLoginInfo, 0, len(user.Logins))
	for _, l := range user.Logins {
		out = append(out, l.Info())
	}
	return out, nil
}

// FindByLogin returns the user linked to loginProvider/providerKey, or nil.
//
// Embedded logins are matched client-side: every user document is loaded
// and filtered in memory. This is fine for small collections and does not
// scale past a few thousand users.
func (s *Store[K]) FindByLogin(ctx context.Context, loginProvider, providerKey string) (*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	users, err := s.allUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.GetUserLogin(loginProvider, providerKey) != nil {
			return s.track(u), nil
		}
	}
	return nil, nil
}

// FindLogin returns the stored login record for loginProvider/providerKey
// on any user, or nil. Same full scan as FindByLogin.
func (s *Store[K]) FindLogin(ctx context.Context, loginProvider, providerKey string) (*models.UserLogin, error) {
	u, err := s.FindByLogin(ctx, loginProvider, providerKey)
	if err != nil || u == nil {
		return nil, err
	}
	return u.GetUserLogin(loginProvider, providerKey), nil
}

// FindUserLogin returns the stored login record for loginProvider/
// providerKey on user userID, or nil.
func (s *Store[K]) FindUserLogin(ctx context.Context, userID K, loginProvider, providerKey string) (*models.UserLogin, error) {
	u, err := s.FindUser(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	return u.GetUserLogin(loginProvider, providerKey), nil
}
