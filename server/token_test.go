package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_IssueAPIToken_VerifiesAgainstSameKey(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	key := []byte("sekrit")
	tokStr, err := IssueAPIToken(key, time.Hour)
	require.NoError(err)

	parsed, err := jwt.Parse(tokStr, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	require.NoError(err)
	assert.True(parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(ok)
	assert.Equal("api", claims["sub"])
	assert.Equal(tokenIssuer, claims["iss"])
}

func Test_IssueAPIToken_RejectedByWrongKey(t *testing.T) {
	assert := assert.New(t)
	tokStr, err := IssueAPIToken([]byte("sekrit"), time.Hour)
	assert.NoError(err)

	_, err = jwt.Parse(tokStr, func(t *jwt.Token) (interface{}, error) {
		return []byte("other-key"), nil
	})
	assert.Error(err)
}
