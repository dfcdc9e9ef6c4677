package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
	"github.com/normatel/norahub/services"
)

type AuthMiddleware struct {
	Auth  *services.AuthService
	Users *services.UserService
}

func NewAuthMiddleware(auth *services.AuthService, users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{Auth: auth, Users: users}
}

// RequireAuth validates the bearer token and stashes the caller's identity
// in the gin context. Unknown SSO users inside the allowed corporate domain
// are auto-provisioned as active collaborators on first login.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		token, err := m.Auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := m.Auth.VerifyToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			c.Abort()
			return
		}

		user, err := m.ensureUserExists(c, claims)
		if err != nil {
			log.Printf("Failed to sync user %s: %v", claims.UserID, err)
			c.JSON(http.StatusForbidden, gin.H{"error": "account not allowed"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user_email", user.Email)
		c.Set("user_funcao", user.Funcao)
		c.Next()
	}
}

// ensureUserExists auto-syncs the profile on first SSO login. Password
// accounts are created through signup and must already exist.
func (m *AuthMiddleware) ensureUserExists(c *gin.Context, claims *services.AuthClaims) (*db.User, error) {
	ctx := c.Request.Context()

	user, err := m.Users.GetUser(ctx, claims.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, authz.ErrNotFound) {
		return nil, err
	}
	if claims.Provider != "sso" {
		return nil, errors.New("unknown account")
	}
	if !m.Auth.IsAllowedSSODomain(claims.Email) {
		return nil, errors.New("e-mail domain not allowed")
	}

	name := claims.Name
	if name == "" {
		// Derive a display name from the e-mail local part
		local := strings.SplitN(claims.Email, "@", 2)[0]
		name = cases.Title(language.BrazilianPortuguese).String(strings.ReplaceAll(local, ".", " "))
	}

	user = &db.User{
		ID:           claims.UserID,
		Name:         name,
		Email:        strings.ToLower(claims.Email),
		PhotoURL:     claims.PhotoURL,
		Funcao:       "Colaborador",
		AccessStatus: db.AccessActive,
	}
	if err := m.Users.CreateUserRecord(ctx, user); err != nil {
		if errors.Is(err, authz.ErrAlreadyExists) {
			return m.Users.GetUser(ctx, claims.UserID)
		}
		return nil, err
	}
	log.Printf("Auto-provisioned SSO user %s (%s)", user.ID, user.Email)
	return user, nil
}

// RequireActive blocks pending accounts from every mutating route
func (m *AuthMiddleware) RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		user, err := m.Users.GetUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		if user.IsPending() {
			c.JSON(http.StatusForbidden, gin.H{"error": authz.ErrPendingApproval.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}
