package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	userID := primitive.NewObjectID()
	token, err := GenerateJWT(userID, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	got, err := claims.User()
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(primitive.NewObjectID(), "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestClaims_UserRejectsBadSubject(t *testing.T) {
	_, err := (&Claims{UserID: "abc"}).User()
	assert.ErrorIs(t, err, ErrInvalidSubject)
}
