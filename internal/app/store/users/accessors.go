// internal/app/store/users/accessors.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/identitymongo/internal/domain/models"
)

// The accessors below read and write user fields in memory only. They
// exist so callers written against the store can stay ignorant of the
// document layout.

// GetUserID returns user's key in string form.
func (s *Store[K]) GetUserID(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return s.keys.Format(user.ID), nil
}

func (s *Store[K]) GetUserName(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.UserName, nil
}

func (s *Store[K]) SetUserName(ctx context.Context, user *models.User[K], userName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.UserName = userName
	return nil
}

func (s *Store[K]) GetNormalizedUserName(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.NormalizedUserName, nil
}

func (s *Store[K]) SetNormalizedUserName(ctx context.Context, user *models.User[K], normalizedName string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.NormalizedUserName = normalizedName
	return nil
}

func (s *Store[K]) GetEmail(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.Email, nil
}

func (s *Store[K]) SetEmail(ctx context.Context, user *models.User[K], email string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.Email = email
	return nil
}

func (s *Store[K]) GetNormalizedEmail(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.NormalizedEmail, nil
}

func (s *Store[K]) SetNormalizedEmail(ctx context.Context, user *models.User[K], normalizedEmail string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.NormalizedEmail = normalizedEmail
	return nil
}

func (s *Store[K]) GetEmailConfirmed(ctx context.Context, user *models.User[K]) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	return user.EmailConfirmed, nil
}

func (s *Store[K]) SetEmailConfirmed(ctx context.Context, user *models.User[K], confirmed bool) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.EmailConfirmed = confirmed
	return nil
}

func (s *Store[K]) GetPhoneNumber(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.PhoneNumber, nil
}

func (s *Store[K]) SetPhoneNumber(ctx context.Context, user *models.User[K], phoneNumber string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.PhoneNumber = phoneNumber
	return nil
}

func (s *Store[K]) GetPhoneNumberConfirmed(ctx context.Context, user *models.User[K]) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	return user.PhoneNumberConfirmed, nil
}

func (s *Store[K]) SetPhoneNumberConfirmed(ctx context.Context, user *models.User[K], confirmed bool) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.PhoneNumberConfirmed = confirmed
	return nil
}

// GetPasswordHash returns the stored hash. Hashing itself happens in the
// caller.
func (s *Store[K]) GetPasswordHash(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.PasswordHash, nil
}

func (s *Store[K]) SetPasswordHash(ctx context.Context, user *models.User[K], passwordHash string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	return nil
}

// HasPassword reports whether a password hash is set.
func (s *Store[K]) HasPassword(ctx context.Context, user *models.User[K]) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	return user.PasswordHash != "", nil
}

func (s *Store[K]) GetSecurityStamp(ctx context.Context, user *models.User[K]) (string, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return "", err
	}
	return user.SecurityStamp, nil
}

func (s *Store[K]) SetSecurityStamp(ctx context.Context, user *models.User[K], stamp string) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.SecurityStamp = stamp
	return nil
}

func (s *Store[K]) GetTwoFactorEnabled(ctx context.Context, user *models.User[K]) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	return user.TwoFactorEnabled, nil
}

func (s *Store[K]) SetTwoFactorEnabled(ctx context.Context, user *models.User[K], enabled bool) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.TwoFactorEnabled = enabled
	return nil
}

// GetLockoutEnd returns the end of the current lockout, or nil when the
// user is not locked out.
func (s *Store[K]) GetLockoutEnd(ctx context.Context, user *models.User[K]) (*time.Time, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	return user.LockoutEnd, nil
}

func (s *Store[K]) SetLockoutEnd(ctx context.Context, user *models.User[K], end *time.Time) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if end != nil {
		t := end.UTC()
		end = &t
	}
	user.LockoutEnd = end
	return nil
}

func (s *Store[K]) GetLockoutEnabled(ctx context.Context, user *models.User[K]) (bool, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return false, err
	}
	return user.LockoutEnabled, nil
}

func (s *Store[K]) SetLockoutEnabled(ctx context.Context, user *models.User[K], enabled bool) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.LockoutEnabled = enabled
	return nil
}

func (s *Store[K]) GetAccessFailedCount(ctx context.Context, user *models.User[K]) (int, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return 0, err
	}
	return user.AccessFailedCount, nil
}

// IncrementAccessFailedCount bumps the failed-access counter and returns
// the new value.
func (s *Store[K]) IncrementAccessFailedCount(ctx context.Context, user *models.User[K]) (int, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return 0, err
	}
	user.AccessFailedCount++
	return user.AccessFailedCount, nil
}

func (s *Store[K]) ResetAccessFailedCount(ctx context.Context, user *models.User[K]) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	user.AccessFailedCount = 0
	return nil
}
