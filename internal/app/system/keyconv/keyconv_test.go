package keyconv_test

import (
	"testing"

	"github.com/dalemusser/identitymongo/internal/app/system/keyconv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func roundTrip[K comparable](t *testing.T, c keyconv.Converter[K]) {
	t.Helper()
	k, err := c.New()
	require.NoError(t, err)

	s := c.Format(k)
	require.NotEmpty(t, s)

	back, err := c.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, k, back)

	var zero K
	assert.Empty(t, c.Format(zero))
	parsed, err := c.Parse("")
	require.NoError(t, err)
	assert.Equal(t, zero, parsed)
}

func TestRoundTrip(t *testing.T) {
	t.Run("objectid", func(t *testing.T) { roundTrip[primitive.ObjectID](t, keyconv.ObjectID{}) })
	t.Run("string", func(t *testing.T) { roundTrip[string](t, keyconv.String{}) })
	t.Run("guid", func(t *testing.T) { roundTrip[uuid.UUID](t, keyconv.GUID{}) })
}

func TestParse_Invalid(t *testing.T) {
	_, err := keyconv.ObjectID{}.Parse("not-hex")
	assert.Error(t, err)

	_, err = keyconv.GUID{}.Parse("nope")
	assert.Error(t, err)

	_, err = keyconv.Int{}.Parse("12a")
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	c := keyconv.Int{}

	n, err := c.Parse("42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, "42", c.Format(42))
	assert.Equal(t, "", c.Format(0))

	_, err = c.New()
	assert.ErrorIs(t, err, keyconv.ErrNoGenerator)
}
