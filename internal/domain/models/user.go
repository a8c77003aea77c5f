// internal/domain/models/user.go
package models

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrNilArgument is returned by the mutation helpers when a required
// argument is nil or, for keys, the zero value.
var ErrNilArgument = errors.New("argument must not be nil")

// User is the aggregate persisted as one document in the users collection.
//
// NOTE:
//   - Roles, claims, logins, and tokens are embedded sub-lists, not join
//     collections. Each list is kept duplicate-free by the helpers below;
//     mutate it through them rather than appending directly.
//   - Roles holds role keys only. Resolving names needs a roles lookup.
type User[K comparable] struct {
	ID                   K          `bson:"_id" json:"id"`
	UserName             string     `bson:"user_name" json:"user_name"`
	NormalizedUserName   string     `bson:"normalized_user_name" json:"normalized_user_name"`
	Email                string     `bson:"email,omitempty" json:"email,omitempty"`
	NormalizedEmail      string     `bson:"normalized_email,omitempty" json:"normalized_email,omitempty"`
	EmailConfirmed       bool       `bson:"email_confirmed" json:"email_confirmed"`
	PasswordHash         string     `bson:"password_hash,omitempty" json:"-"`
	SecurityStamp        string     `bson:"security_stamp,omitempty" json:"-"`
	ConcurrencyStamp     string     `bson:"concurrency_stamp" json:"concurrency_stamp"`
	PhoneNumber          string     `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	PhoneNumberConfirmed bool       `bson:"phone_number_confirmed" json:"phone_number_confirmed"`
	TwoFactorEnabled     bool       `bson:"two_factor_enabled" json:"two_factor_enabled"`
	LockoutEnd           *time.Time `bson:"lockout_end,omitempty" json:"lockout_end,omitempty"`
	LockoutEnabled       bool       `bson:"lockout_enabled" json:"lockout_enabled"`
	AccessFailedCount    int        `bson:"access_failed_count" json:"access_failed_count"`

	Roles  []K            `bson:"roles" json:"roles"`
	Claims []Claim        `bson:"claims" json:"claims"`
	Logins []UserLogin    `bson:"logins" json:"logins"`
	Tokens []UserToken[K] `bson:"tokens" json:"-"`
}

// NewUser returns a user with empty embedded lists and a fresh
// concurrency stamp.
func NewUser[K comparable](id K, userName string) *User[K] {
	return &User[K]{
		ID:               id,
		UserName:         userName,
		ConcurrencyStamp: uuid.NewString(),
		Roles:            []K{},
		Claims:           []Claim{},
		Logins:           []UserLogin{},
		Tokens:           []UserToken[K]{},
	}
}

// GetUserLogin returns the login for provider/providerKey, or nil.
func (u *User[K]) GetUserLogin(loginProvider, providerKey string) *UserLogin {
	for i := range u.Logins {
		if u.Logins[i].matches(loginProvider, providerKey) {
			return &u.Logins[i]
		}
	}
	return nil
}

// GetToken returns the token for loginProvider/name, or nil.
func (u *User[K]) GetToken(loginProvider, name string) *UserToken[K] {
	for i := range u.Tokens {
		if u.Tokens[i].LoginProvider == loginProvider && u.Tokens[i].Name == name {
			return &u.Tokens[i]
		}
	}
	return nil
}

// HasClaim reports whether an identical type/value pair is present.
func (u *User[K]) HasClaim(claimType, claimValue string) bool {
	return slices.ContainsFunc(u.Claims, func(c Claim) bool {
		return c.Type == claimType && c.Value == claimValue
	})
}

// AddClaim appends the claim unless an identical type/value pair exists.
func (u *User[K]) AddClaim(claim *Claim) (bool, error) {
	if claim == nil {
		return false, ErrNilArgument
	}
	if u.HasClaim(claim.Type, claim.Value) {
		return false, nil
	}
	u.Claims = append(u.Claims, *claim)
	return true, nil
}

// RemoveClaim removes the first claim matching type and value.
func (u *User[K]) RemoveClaim(claim *Claim) (bool, error) {
	if claim == nil {
		return false, ErrNilArgument
	}
	i := slices.IndexFunc(u.Claims, func(c Claim) bool {
		return c.Type == claim.Type && c.Value == claim.Value
	})
	if i < 0 {
		return false, nil
	}
	u.Claims = slices.Delete(u.Claims, i, i+1)
	return true, nil
}

// ReplaceClaim removes claim and adds newClaim. Either half may be a no-op
// (claim absent, newClaim already present); it still reports true.
func (u *User[K]) ReplaceClaim(claim, newClaim *Claim) (bool, error) {
	if claim == nil || newClaim == nil {
		return false, ErrNilArgument
	}
	_, _ = u.RemoveClaim(claim)
	_, _ = u.AddClaim(newClaim)
	return true, nil
}

// HasRole reports whether roleID is referenced by the user.
func (u *User[K]) HasRole(roleID K) bool {
	return slices.Contains(u.Roles, roleID)
}

// AddRole appends roleID unless it is already present.
// The zero key is rejected.
func (u *User[K]) AddRole(roleID K) (bool, error) {
	var zero K
	if roleID == zero {
		return false, ErrNilArgument
	}
	if u.HasRole(roleID) {
		return false, nil
	}
	u.Roles = append(u.Roles, roleID)
	return true, nil
}

// RemoveRole removes roleID. The zero key is rejected.
func (u *User[K]) RemoveRole(roleID K) (bool, error) {
	var zero K
	if roleID == zero {
		return false, ErrNilArgument
	}
	i := slices.Index(u.Roles, roleID)
	if i < 0 {
		return false, nil
	}
	u.Roles = slices.Delete(u.Roles, i, i+1)
	return true, nil
}

// AddLogin appends a login record unless one with the same provider and
// provider key exists. The existing record's display name is kept.
func (u *User[K]) AddLogin(login *UserLoginInfo) (bool, error) {
	if login == nil {
		return false, ErrNilArgument
	}
	if u.GetUserLogin(login.LoginProvider, login.ProviderKey) != nil {
		return false, nil
	}
	u.Logins = append(u.Logins, UserLogin{
		LoginProvider:       login.LoginProvider,
		ProviderKey:         login.ProviderKey,
		ProviderDisplayName: login.ProviderDisplayName,
	})
	return true, nil
}

// RemoveLogin removes the login with the same provider and provider key.
func (u *User[K]) RemoveLogin(login *UserLoginInfo) (bool, error) {
	if login == nil {
		return false, ErrNilArgument
	}
	i := slices.IndexFunc(u.Logins, func(l UserLogin) bool {
		return l.matches(login.LoginProvider, login.ProviderKey)
	})
	if i < 0 {
		return false, nil
	}
	u.Logins = slices.Delete(u.Logins, i, i+1)
	return true, nil
}

// AddToken appends the token unless one with the same provider, name,
// and value exists.
func (u *User[K]) AddToken(token *UserToken[K]) (bool, error) {
	if token == nil {
		return false, ErrNilArgument
	}
	dup := slices.ContainsFunc(u.Tokens, func(t UserToken[K]) bool {
		return t.LoginProvider == token.LoginProvider && t.Name == token.Name && t.Value == token.Value
	})
	if dup {
		return false, nil
	}
	u.Tokens = append(u.Tokens, *token)
	return true, nil
}

// RemoveToken removes the first token with the same provider and name.
// The value is not compared.
func (u *User[K]) RemoveToken(token *UserToken[K]) (bool, error) {
	if token == nil {
		return false, ErrNilArgument
	}
	i := slices.IndexFunc(u.Tokens, func(t UserToken[K]) bool {
		return t.LoginProvider == token.LoginProvider && t.Name == token.Name
	})
	if i < 0 {
		return false, nil
	}
	u.Tokens = slices.Delete(u.Tokens, i, i+1)
	return true, nil
}
