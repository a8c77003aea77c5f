// internal/app/system/bsonkeys/bsonkeys.go

// Package bsonkeys holds the BSON registry shared by the Mongo client and
// the in-memory document backend. It adds a codec that stores uuid.UUID
// keys as binary subtype 4 instead of a 16-element array.
package bsonkeys

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

const (
	subtypeUUID    byte = 0x04
	subtypeUUIDOld byte = 0x03
)

var tUUID = reflect.TypeOf(uuid.UUID{})

var (
	regOnce sync.Once
	reg     *bsoncodec.Registry
)

// Registry returns the process-wide registry.
func Registry() *bsoncodec.Registry {
	regOnce.Do(func() {
		r := bson.NewRegistry()
		r.RegisterTypeEncoder(tUUID, bsoncodec.ValueEncoderFunc(encodeUUID))
		r.RegisterTypeDecoder(tUUID, bsoncodec.ValueDecoderFunc(decodeUUID))
		reg = r
	})
	return reg
}

// Marshal encodes v with Registry.
func Marshal(v any) ([]byte, error) {
	return bson.MarshalWithRegistry(Registry(), v)
}

// Unmarshal decodes data into v with Registry.
func Unmarshal(data []byte, v any) error {
	return bson.UnmarshalWithRegistry(Registry(), data, v)
}

// MarshalValue encodes a single value, e.g. a filter operand.
func MarshalValue(v any) (bson.RawValue, error) {
	t, data, err := bson.MarshalValueWithRegistry(Registry(), v)
	if err != nil {
		return bson.RawValue{}, err
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

func encodeUUID(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != tUUID {
		return bsoncodec.ValueEncoderError{Name: "UUIDEncodeValue", Types: []reflect.Type{tUUID}, Received: val}
	}
	u := val.Interface().(uuid.UUID)
	return vw.WriteBinaryWithSubtype(u[:], subtypeUUID)
}

func decodeUUID(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != tUUID {
		return bsoncodec.ValueDecoderError{Name: "UUIDDecodeValue", Types: []reflect.Type{tUUID}, Received: val}
	}

	switch vr.Type() {
	case bsontype.Null:
		val.Set(reflect.Zero(tUUID))
		return vr.ReadNull()
	case bsontype.Undefined:
		val.Set(reflect.Zero(tUUID))
		return vr.ReadUndefined()
	case bsontype.Binary:
	default:
		return fmt.Errorf("bsonkeys: cannot decode %v into uuid.UUID", vr.Type())
	}

	data, subtype, err := vr.ReadBinary()
	if err != nil {
		return err
	}
	if subtype != subtypeUUID && subtype != subtypeUUIDOld {
		return fmt.Errorf("bsonkeys: binary subtype %#x is not a uuid", subtype)
	}
	if len(data) != len(uuid.UUID{}) {
		return fmt.Errorf("bsonkeys: uuid must be 16 bytes, got %d", len(data))
	}
	var u uuid.UUID
	copy(u[:], data)
	val.Set(reflect.ValueOf(u))
	return nil
}
