// internal/domain/models/role.go
package models

import "github.com/google/uuid"

// Role is stored in its own collection. Users reference it by ID; the role
// keeps no back-reference to its members.
type Role[K comparable] struct {
	ID               K      `bson:"_id" json:"id"`
	Name             string `bson:"name" json:"name"`
	NormalizedName   string `bson:"normalized_name" json:"normalized_name"`
	ConcurrencyStamp string `bson:"concurrency_stamp" json:"concurrency_stamp"`
}

// NewRole returns a role with a fresh concurrency stamp.
func NewRole[K comparable](id K, name string) *Role[K] {
	return &Role[K]{
		ID:               id,
		Name:             name,
		ConcurrencyStamp: uuid.NewString(),
	}
}
