package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("ada", 42, time.Now().Add(time.Hour), secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifyAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestVerifyAccessToken(t *testing.T) {
	t.Run("WrongSecret", func(t *testing.T) {
		token, err := GenerateAccessToken("ada", 42, time.Now().Add(time.Hour), secret)
		require.NoError(t, err)

		_, err = VerifyAccessToken(token, []byte("other-secret"))
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := GenerateAccessToken("ada", 42, time.Now().Add(-time.Minute), secret)
		require.NoError(t, err)

		_, err = VerifyAccessToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := VerifyAccessToken("not-a-token", secret)
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("hunter2", "not-a-hash"))
}
