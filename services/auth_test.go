package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/normatel/norahub/db"
)

func TestExtractTokenFromHeader(t *testing.T) {
	s := &AuthService{}

	token, err := s.ExtractTokenFromHeader("Bearer abc123")
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	token, err = s.ExtractTokenFromHeader("bearer abc123")
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = s.ExtractTokenFromHeader("abc123")
	assert.Error(t, err)

	_, err = s.ExtractTokenFromHeader("Basic dXNlcjpwYXNz")
	assert.Error(t, err)
}

func TestIsAllowedSSODomain(t *testing.T) {
	s := &AuthService{allowedDomain: "petrobras.com.br"}

	assert.True(t, s.IsAllowedSSODomain("maria.silva@petrobras.com.br"))
	assert.True(t, s.IsAllowedSSODomain("joao@PETROBRAS.COM.BR"))
	assert.False(t, s.IsAllowedSSODomain("maria@gmail.com"))
	assert.False(t, s.IsAllowedSSODomain("maria@petrobras.com.br.evil.com"))
	assert.False(t, s.IsAllowedSSODomain("no-at-sign"))

	// No restriction configured means every domain is allowed
	open := &AuthService{}
	assert.True(t, open.IsAllowedSSODomain("anyone@anywhere.com"))
}

func TestHashPassword(t *testing.T) {
	s := &AuthService{}

	hash, err := s.HashPassword("s3cret!")
	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret!")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}

func TestLocalTokenRoundTrip(t *testing.T) {
	s := &AuthService{jwtSecret: "test-secret"}

	user := &db.User{
		ID:    "local:maria@normatel.com.br",
		Name:  "Maria Silva",
		Email: "maria@normatel.com.br",
	}

	token, err := s.issueToken(user)
	assert.NoError(t, err)

	claims, err := s.verifyLocalToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, "password", claims.Provider)
}

func TestVerifyLocalToken_WrongSecret(t *testing.T) {
	issuer := &AuthService{jwtSecret: "secret-a"}
	verifier := &AuthService{jwtSecret: "secret-b"}

	token, err := issuer.issueToken(&db.User{ID: "u1", Email: "u1@x.com"})
	assert.NoError(t, err)

	_, err = verifier.verifyLocalToken(token)
	assert.Error(t, err)
}

func TestVerifyLocalToken_NoSecret(t *testing.T) {
	s := &AuthService{}
	_, err := s.verifyLocalToken("whatever")
	assert.Error(t, err)
}
