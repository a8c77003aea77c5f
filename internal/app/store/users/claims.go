// internal/app/store/users/claims.go
package userstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/dalemusser/identitymongo/internal/domain/identity"
	"github.com/dalemusser/identitymongo/internal/domain/models"
)

// GetClaims returns a copy of user's claims.
func (s *Store[K]) GetClaims(ctx context.Context, user *models.User[K]) ([]models.Claim, error) {
	if err := s.checkUser(ctx, user); err != nil {
		return nil, err
	}
	out := slices.Clone(user.Claims)
	if out == nil {
		out = []models.Claim{}
	}
	return out, nil
}

// AddClaims adds each claim to user. Claims already present are skipped
// and the rest are still added.
func (s *Store[K]) AddClaims(ctx context.Context, user *models.User[K], claims []models.Claim) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if claims == nil {
		return fmt.Errorf("%w: claims", identity.ErrInvalidArgument)
	}
	for i := range claims {
		if _, err := user.AddClaim(&claims[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceClaim swaps claim for newClaim on user. It succeeds even when
// claim was not present.
func (s *Store[K]) ReplaceClaim(ctx context.Context, user *models.User[K], claim, newClaim *models.Claim) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if claim == nil || newClaim == nil {
		return fmt.Errorf("%w: claim", identity.ErrInvalidArgument)
	}
	_, err := user.ReplaceClaim(claim, newClaim)
	return err
}

// RemoveClaims removes claims from user in order and stops at the first
// claim that is not present; claims after it are left in place.
func (s *Store[K]) RemoveClaims(ctx context.Context, user *models.User[K], claims []models.Claim) error {
	if err := s.checkUser(ctx, user); err != nil {
		return err
	}
	if claims == nil {
		return fmt.Errorf("%w: claims", identity.ErrInvalidArgument)
	}
	for i := range claims {
		removed, err := user.RemoveClaim(&claims[i])
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
	}
	return nil
}

// GetUsersForClaim returns every user holding claim. Embedded claim lists
// are matched client-side over the whole collection.
func (s *Store[K]) GetUsersForClaim(ctx context.Context, claim *models.Claim) ([]*models.User[K], error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: claim", identity.ErrInvalidArgument)
	}
	users, err := s.allUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := []*models.User[K]{}
	for _, u := range users {
		if u.HasClaim(claim.Type, claim.Value) {
			out = append(out, u)
		}
	}
	return out, nil
}
