// internal/app/system/normalize/normalize.go

// Package normalize produces the canonical lookup keys stored in the
// normalized_* fields. Lookups compare these exactly, so every writer must
// normalize the same way.
package normalize

import "strings"

// Key upper-cases s after trimming surrounding whitespace.
func Key(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// UserName returns the normalized form of a user name.
func UserName(s string) string { return Key(s) }

// Email returns the normalized form of an email address.
func Email(s string) string { return Key(s) }

// RoleName returns the normalized form of a role name.
func RoleName(s string) string { return Key(s) }
