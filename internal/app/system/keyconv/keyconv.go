// internal/app/system/keyconv/keyconv.go

// Package keyconv converts between the textual ids exchanged with callers
// and the native key type a store is instantiated with.
//
// An empty string parses to the zero key and the zero key formats to an
// empty string, so "no id" survives the round trip in both directions.
package keyconv

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoGenerator is returned by New for key types the database or caller
// must assign.
var ErrNoGenerator = errors.New("keyconv: key type has no generator")

// Converter parses, formats, and generates keys of type K.
type Converter[K comparable] interface {
	Parse(s string) (K, error)
	Format(k K) string
	New() (K, error)
}

// ObjectID handles primitive.ObjectID keys, the native MongoDB id.
type ObjectID struct{}

func (ObjectID) Parse(s string) (primitive.ObjectID, error) {
	if s == "" {
		return primitive.NilObjectID, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("keyconv: parse object id %q: %w", s, err)
	}
	return id, nil
}

func (ObjectID) Format(k primitive.ObjectID) string {
	if k.IsZero() {
		return ""
	}
	return k.Hex()
}

func (ObjectID) New() (primitive.ObjectID, error) { return primitive.NewObjectID(), nil }

// String handles opaque string keys. New mints a ULID so generated keys
// sort by creation time.
type String struct{}

func (String) Parse(s string) (string, error) { return s, nil }
func (String) Format(k string) string         { return k }
func (String) New() (string, error)           { return ulid.Make().String(), nil }

// GUID handles uuid.UUID keys.
type GUID struct{}

func (GUID) Parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("keyconv: parse guid %q: %w", s, err)
	}
	return id, nil
}

func (GUID) Format(k uuid.UUID) string {
	if k == uuid.Nil {
		return ""
	}
	return k.String()
}

func (GUID) New() (uuid.UUID, error) { return uuid.New(), nil }

// Int handles integer keys. There is no generator; callers assign ids.
type Int struct{}

func (Int) Parse(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("keyconv: parse int %q: %w", s, err)
	}
	return n, nil
}

func (Int) Format(k int) string {
	if k == 0 {
		return ""
	}
	return strconv.Itoa(k)
}

func (Int) New() (int, error) { return 0, ErrNoGenerator }
