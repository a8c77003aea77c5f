// internal/app/store/users/tokens.go
package userstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
)

// Token names used by the authenticator and recovery code helpers.
const (
	InternalLoginProvider = "[AspNetUserStore]"
	AuthenticatorKeyToken = "AuthenticatorKey"
	RecoveryCodeTokenName = "RecoveryCodes"
	recoveryCodeSeparator = ";"
)

// FindToken returns user's token for loginProvider/name, or nil.
func (s *Store[K]) FindToken(ctx context.Context, user *models.User[K], loginProvider, name string) (*models.UserToken[K], error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	return user.GetToken(loginProvider, name), nil
}

// FindUserToken loads user userID and returns its token for
// loginProvider/name. A missing user yields nil, not an error.
func (s *Store[K]) FindUserToken(ctx context.Context, userID K, loginProvider, name string) (*models.UserToken[K], error) {
	u, err := s.FindUser(ctx, userID)
	if err != nil || u == nil {
		return nil, err
	}
	return u.GetToken(loginProvider, name), nil
}

// AddUserToken adds token to the user named by token.UserID. The change
// is applied to the instance tracked by the store's Context, the same one
// FindUser and Create hand out; nothing is saved until that user is
// passed to Update. An unknown user returns identity.ErrUserNotFound.
func (s *Store[K]) AddUserToken(ctx context.Context, token *models.UserToken[K]) error {
	return s.changeUserToken(ctx, token, (*models.User[K]).AddToken)
}

// RemoveUserToken removes the token with token's provider and name from
// the user named by token.UserID, applied as for AddUserToken.
func (s *Store[K]) RemoveUserToken(ctx context.Context, token *models.UserToken[K]) error {
	return s.changeUserToken(ctx, token, (*models.User[K]).RemoveToken)
}

func (s *Store[K]) changeUserToken(ctx context.Context, token *models.UserToken[K], apply func(*models.User[K], *models.UserToken[K]) (bool, error)) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("%w: token", identity.ErrInvalidArgument)
	}
	u, err := s.FindUser(ctx, token.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: %s", identity.ErrUserNotFound, s.keys.Format(token.UserID))
	}
	_, err = apply(u, token)
	return err
}

// SetToken sets the value of user's loginProvider/name token, adding the
// token when it does not exist.
func (s *Store[K]) SetToken(ctx context.Context, user *models.User[K], loginProvider, name, value string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if t := user.GetToken(loginProvider, name); t != nil {
		t.Value = value
		return nil
	}
	_, err := user.AddToken(&models.UserToken[K]{
		UserID:        user.ID,
		LoginProvider: loginProvider,
		Name:          name,
		Value:         value,
	})
	return err
}

// RemoveToken deletes user's loginProvider/name token if present.
func (s *Store[K]) RemoveToken(ctx context.Context, user *models.User[K], loginProvider, name string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	_, err := user.RemoveToken(&models.UserToken[K]{LoginProvider: loginProvider, Name: name})
	return err
}

// GetTokenValue returns the value of user's loginProvider/name token, or
// "" when there is none.
func (s *Store[K]) GetTokenValue(ctx context.Context, user *models.User[K], loginProvider, name string) (string, error) {
	t, err := s.FindToken(ctx, user, loginProvider, name)
	if err != nil || t == nil {
		return "", err
	}
	return t.Value, nil
}

// SetAuthenticatorKey stores the authenticator key as an internal token.
func (s *Store[K]) SetAuthenticatorKey(ctx context.Context, user *models.User[K], key string) error {
	return s.SetToken(ctx, user, InternalLoginProvider, AuthenticatorKeyToken, key)
}

// GetAuthenticatorKey returns the stored authenticator key, or "".
func (s *Store[K]) GetAuthenticatorKey(ctx context.Context, user *models.User[K]) (string, error) {
	return s.GetTokenValue(ctx, user, InternalLoginProvider, AuthenticatorKeyToken)
}

// ReplaceCodes replaces user's recovery codes.
func (s *Store[K]) ReplaceCodes(ctx context.Context, user *models.User[K], recoveryCodes []string) error {
	if recoveryCodes == nil {
		if err := s.checkUser(ctx, user); err != nil {
			return err
		}
		return fmt.Errorf("%w: recovery codes", identity.ErrInvalidArgument)
	}
	merged := strings.Join(recoveryCodes, recoveryCodeSeparator)
	return s.SetToken(ctx, user, InternalLoginProvider, RecoveryCodeTokenName, merged)
}

// RedeemCode consumes code if it is one of user's recovery codes and
// reports whether it was.
func (s *Store[K]) RedeemCode(ctx context.Context, user *models.User[K], code string) (bool, error) {
	merged, err := s.GetTokenValue(ctx, user, InternalLoginProvider, RecoveryCodeTokenName)
	if err != nil {
		return false, err
	}
	if code == "" || merged == "" {
		return false, nil
	}
	codes := strings.Split(merged, recoveryCodeSeparator)
	if !slices.Contains(codes, code) {
		return false, nil
	}
	remaining := slices.DeleteFunc(codes, func(c string) bool { return c == code })
	return true, s.ReplaceCodes(ctx, user, remaining)
}

// CountCodes returns how many recovery codes user has left.
func (s *Store[K]) CountCodes(ctx context.Context, user *models.User[K]) (int, error) {
	merged, err := s.GetTokenValue(ctx, user, InternalLoginProvider, RecoveryCodeTokenName)
	if err != nil || merged == "" {
		return 0, err
	}
	return strings.Count(merged, recoveryCodeSeparator) + 1, nil
}
