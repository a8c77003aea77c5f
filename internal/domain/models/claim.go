// internal/domain/models/claim.go
package models

// Claim is a type/value pair embedded on a user. Two claims are the same
// claim when both fields match exactly.
type Claim struct {
	Type  string `bson:"claim_type" json:"type"`
	Value string `bson:"claim_value" json:"value"`
}

// UserLoginInfo describes an external login handed to the store.
type UserLoginInfo struct {
	LoginProvider       string
	ProviderKey         string
	ProviderDisplayName string
}

// UserLogin is the embedded record of an external login. It is identified
// by LoginProvider + ProviderKey.
type UserLogin struct {
	LoginProvider       string `bson:"login_provider" json:"login_provider"`
	ProviderKey         string `bson:"provider_key" json:"provider_key"`
	ProviderDisplayName string `bson:"provider_display_name,omitempty" json:"provider_display_name,omitempty"`
}

func (l UserLogin) matches(loginProvider, providerKey string) bool {
	return l.LoginProvider == loginProvider && l.ProviderKey == providerKey
}

// Info converts the record back to the form callers pass in.
func (l UserLogin) Info() UserLoginInfo {
	return UserLoginInfo{
		LoginProvider:       l.LoginProvider,
		ProviderKey:         l.ProviderKey,
		ProviderDisplayName: l.ProviderDisplayName,
	}
}

// UserToken is a named, provider-scoped value embedded on a user.
// UserID names the owning user so a token can be routed back to it.
type UserToken[K comparable] struct {
	UserID        K      `bson:"user_id" json:"user_id"`
	LoginProvider string `bson:"login_provider" json:"login_provider"`
	Name          string `bson:"name" json:"name"`
	Value         string `bson:"value" json:"-"`
}
