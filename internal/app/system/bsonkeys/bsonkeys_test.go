package bsonkeys

import (
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type keyed struct {
	ID    uuid.UUID   `bson:"_id"`
	Roles []uuid.UUID `bson:"roles"`
}

func TestUUID_StoredAsBinary(t *testing.T) {
	in := keyed{ID: uuid.New(), Roles: []uuid.UUID{uuid.New()}}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	rv := bson.Raw(data).Lookup("_id")
	if rv.Type != bsontype.Binary {
		t.Fatalf("_id type = %v, want binary", rv.Type)
	}
	subtype, b := rv.Binary()
	if subtype != subtypeUUID || len(b) != 16 {
		t.Errorf("subtype=%#x len=%d", subtype, len(b))
	}

	var out keyed
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.ID != in.ID || len(out.Roles) != 1 || out.Roles[0] != in.Roles[0] {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestMarshalValue_MatchesDocumentEncoding(t *testing.T) {
	id := uuid.New()
	data, err := Marshal(keyed{ID: id})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	v, err := MarshalValue(id)
	if err != nil {
		t.Fatalf("MarshalValue failed: %v", err)
	}
	if !bson.Raw(data).Lookup("_id").Equal(v) {
		t.Error("filter value does not equal stored value")
	}
}

func TestDecode_RejectsWrongSubtype(t *testing.T) {
	doc := bson.D{{Key: "_id", Value: primitive.Binary{Subtype: 0x00, Data: make([]byte, 16)}}}
	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var out keyed
	if err := Unmarshal(data, &out); err == nil {
		t.Error("expected error for generic binary subtype")
	}
}
