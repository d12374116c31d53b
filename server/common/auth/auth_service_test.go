package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", 60, "")

	token, err := svc.GenerateToken("admin", "admin")
	require.NoError(t, err)

	subject, role, err := svc.ParseAuthContext(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
	assert.Equal(t, "admin", role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", 60, "").GenerateToken("admin", "admin")
	require.NoError(t, err)

	_, _, err = NewService("secret-b", 60, "").ParseAuthContext(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := NewService("secret", -1, "")
	token, err := svc.GenerateToken("admin", "admin")
	require.NoError(t, err)

	_, _, err = svc.ParseAuthContext(token)
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService("secret", 60, string(hash))

	assert.NoError(t, svc.CheckPassword("hunter2"))
	assert.Error(t, svc.CheckPassword("wrong"))
}

func TestPasswordLoginDisabledWithoutHash(t *testing.T) {
	svc := NewService("secret", 60, "")
	assert.Error(t, svc.CheckPassword("anything"))
}
