package models_test

import (
	"testing"

	"github.com/dalemusser/identitymongo/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUser() *models.User[primitive.ObjectID] {
	return models.NewUser(primitive.NewObjectID(), "alice")
}

func TestNewUser_InitializesLists(t *testing.T) {
	u := newUser()

	assert.NotEmpty(t, u.ConcurrencyStamp)
	assert.NotNil(t, u.Roles)
	assert.NotNil(t, u.Claims)
	assert.NotNil(t, u.Logins)
	assert.NotNil(t, u.Tokens)
}

func TestAddClaim_RejectsDuplicate(t *testing.T) {
	u := newUser()
	c := &models.Claim{Type: "dept", Value: "eng"}

	added, err := u.AddClaim(c)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = u.AddClaim(c)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, u.Claims, 1)
}

func TestAddClaim_SameTypeDifferentValue(t *testing.T) {
	u := newUser()

	_, _ = u.AddClaim(&models.Claim{Type: "dept", Value: "eng"})
	added, err := u.AddClaim(&models.Claim{Type: "dept", Value: "ops"})

	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, u.Claims, 2)
}

func TestAddClaim_Nil(t *testing.T) {
	u := newUser()
	_, err := u.AddClaim(nil)
	assert.ErrorIs(t, err, models.ErrNilArgument)
}

func TestRemoveClaim(t *testing.T) {
	u := newUser()
	_, _ = u.AddClaim(&models.Claim{Type: "a", Value: "1"})
	_, _ = u.AddClaim(&models.Claim{Type: "b", Value: "2"})

	removed, err := u.RemoveClaim(&models.Claim{Type: "a", Value: "1"})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []models.Claim{{Type: "b", Value: "2"}}, u.Claims)

	removed, err = u.RemoveClaim(&models.Claim{Type: "a", Value: "1"})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReplaceClaim_AlwaysSucceeds(t *testing.T) {
	u := newUser()

	// old claim absent: still reports success and adds the new one
	ok, err := u.ReplaceClaim(&models.Claim{Type: "x", Value: "1"}, &models.Claim{Type: "x", Value: "2"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []models.Claim{{Type: "x", Value: "2"}}, u.Claims)

	ok, err = u.ReplaceClaim(&models.Claim{Type: "x", Value: "2"}, &models.Claim{Type: "x", Value: "3"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []models.Claim{{Type: "x", Value: "3"}}, u.Claims)

	_, err = u.ReplaceClaim(nil, &models.Claim{})
	assert.ErrorIs(t, err, models.ErrNilArgument)
}

func TestAddRemoveRole_RoundTrip(t *testing.T) {
	u := newUser()
	existing := primitive.NewObjectID()
	_, _ = u.AddRole(existing)
	before := append([]primitive.ObjectID(nil), u.Roles...)

	r := primitive.NewObjectID()
	added, err := u.AddRole(r)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = u.AddRole(r)
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := u.RemoveRole(r)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, before, u.Roles)

	removed, err = u.RemoveRole(r)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, before, u.Roles)
}

func TestAddRole_ZeroKey(t *testing.T) {
	u := newUser()

	_, err := u.AddRole(primitive.NilObjectID)
	assert.ErrorIs(t, err, models.ErrNilArgument)
	_, err = u.RemoveRole(primitive.NilObjectID)
	assert.ErrorIs(t, err, models.ErrNilArgument)

	s := models.NewUser("id-1", "bob")
	_, err = s.AddRole("")
	assert.ErrorIs(t, err, models.ErrNilArgument)
}

func TestAddLogin_KeepsFirstDisplayName(t *testing.T) {
	u := newUser()

	added, err := u.AddLogin(&models.UserLoginInfo{LoginProvider: "p", ProviderKey: "k", ProviderDisplayName: "first"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = u.AddLogin(&models.UserLoginInfo{LoginProvider: "p", ProviderKey: "k", ProviderDisplayName: "second"})
	require.NoError(t, err)
	assert.False(t, added)

	require.Len(t, u.Logins, 1)
	assert.Equal(t, "first", u.GetUserLogin("p", "k").ProviderDisplayName)
}

func TestRemoveLogin(t *testing.T) {
	u := newUser()
	_, _ = u.AddLogin(&models.UserLoginInfo{LoginProvider: "p", ProviderKey: "k"})

	removed, err := u.RemoveLogin(&models.UserLoginInfo{LoginProvider: "p", ProviderKey: "other"})
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = u.RemoveLogin(&models.UserLoginInfo{LoginProvider: "p", ProviderKey: "k"})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, u.GetUserLogin("p", "k"))
}

func TestTokens(t *testing.T) {
	u := newUser()
	tok := &models.UserToken[primitive.ObjectID]{UserID: u.ID, LoginProvider: "p", Name: "n", Value: "v"}

	added, err := u.AddToken(tok)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = u.AddToken(tok)
	require.NoError(t, err)
	assert.False(t, added)

	got := u.GetToken("p", "n")
	require.NotNil(t, got)
	assert.Equal(t, "v", got.Value)
	assert.Nil(t, u.GetToken("p", "missing"))

	// removal ignores the value
	removed, err := u.RemoveToken(&models.UserToken[primitive.ObjectID]{LoginProvider: "p", Name: "n", Value: "different"})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, u.Tokens)

	removed, err = u.RemoveToken(&models.UserToken[primitive.ObjectID]{LoginProvider: "p", Name: "n"})
	require.NoError(t, err)
	assert.False(t, removed)
}
