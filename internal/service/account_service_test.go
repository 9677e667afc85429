package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/plant-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService() (*AccountService, *fakeUserRepo) {
	users := newFakeUserRepo()
	return NewAccountService(users, fakeHasher{}, fakeTokens{}), users
}

func register(t *testing.T, svc *AccountService, username, email, password string) string {
	t.Helper()
	user, err := svc.Register(context.Background(), &RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user.ID
}

func TestRegister_Success(t *testing.T) {
	svc, users := newAccountService()

	user, err := svc.Register(context.Background(), &RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hashed:secret", user.PasswordHash, "only the hash is stored")

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored.PasswordHash)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newAccountService()

	cases := []RegisterInput{
		{Username: "", Email: "a@example.com", Password: "pw"},
		{Username: "a", Email: "", Password: "pw"},
		{Username: "a", Email: "a@example.com", Password: ""},
	}
	for _, input := range cases {
		_, err := svc.Register(context.Background(), &input)
		assertServiceError(t, err, types.CodeInvalidInput)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newAccountService()
	register(t, svc, "alice", "alice@example.com", "pw")

	_, err := svc.Register(context.Background(), &RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "pw",
	})
	assertServiceError(t, err, types.CodeConflict)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, users := newAccountService()
	register(t, svc, "alice", "alice@example.com", "pw")

	_, err := svc.Register(context.Background(), &RegisterInput{
		Username: "bob",
		Email:    "alice@example.com",
		Password: "pw",
	})
	assertServiceError(t, err, types.CodeConflict)

	// The failed attempt must not have created a user
	taken, err := users.ExistsByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestAuthenticate_ByUsernameAndEmail(t *testing.T) {
	svc, _ := newAccountService()
	userID := register(t, svc, "alice", "alice@example.com", "pw")

	for _, identifier := range []string{"alice", "alice@example.com"} {
		token, user, err := svc.Authenticate(context.Background(), identifier, "pw")
		require.NoError(t, err, "identifier %q", identifier)
		assert.Equal(t, "token-for-"+userID, token)
		assert.Equal(t, userID, user.ID)
	}
}

func TestAuthenticate_GenericFailure(t *testing.T) {
	svc, _ := newAccountService()
	register(t, svc, "alice", "alice@example.com", "pw")

	// Unknown user and wrong password yield the same generic error,
	// so callers cannot tell which accounts exist.
	_, _, errUnknown := svc.Authenticate(context.Background(), "nobody", "pw")
	_, _, errWrongPw := svc.Authenticate(context.Background(), "alice", "wrong")

	assertServiceError(t, errUnknown, types.CodeUnauthorized)
	assertServiceError(t, errWrongPw, types.CodeUnauthorized)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAccountService()
	userID := register(t, svc, "alice", "alice@example.com", "old")

	err := svc.ChangePassword(context.Background(), userID, "wrong", "new")
	assertServiceError(t, err, types.CodeUnauthorized)

	err = svc.ChangePassword(context.Background(), "missing-user", "old", "new")
	assertServiceError(t, err, types.CodeNotFound)

	err = svc.ChangePassword(context.Background(), userID, "old", "")
	assertServiceError(t, err, types.CodeInvalidInput)

	require.NoError(t, svc.ChangePassword(context.Background(), userID, "old", "new"))

	_, _, err = svc.Authenticate(context.Background(), "alice", "new")
	require.NoError(t, err)
}

func TestGetProfile_NeverExposesPasswordHash(t *testing.T) {
	svc, _ := newAccountService()
	userID := register(t, svc, "alice", "alice@example.com", "pw")

	profile, err := svc.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)

	data, err := json.Marshal(profile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hashed:")
	assert.NotContains(t, string(data), "password")
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, _ := newAccountService()

	_, err := svc.GetProfile(context.Background(), "missing")
	assertServiceError(t, err, types.CodeNotFound)
}

func TestUpdateProfilePicture(t *testing.T) {
	svc, users := newAccountService()
	userID := register(t, svc, "alice", "alice@example.com", "pw")

	err := svc.UpdateProfilePicture(context.Background(), userID, "")
	assertServiceError(t, err, types.CodeInvalidInput)

	require.NoError(t, svc.UpdateProfilePicture(context.Background(), userID, "https://example.com/alice.png"))

	user, err := users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/alice.png", user.ProfilePicture)
}

func assertServiceError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var serviceErr *types.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, code, serviceErr.Code)
}
