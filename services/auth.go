package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/option"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
	"github.com/normatel/norahub/internal/config"
)

// AuthClaims is the normalized identity extracted from a verified token
type AuthClaims struct {
	UserID   string
	Email    string
	Name     string
	PhotoURL string
	Provider string // "sso" or "password"
}

// AuthService verifies bearer tokens and handles account provisioning.
// Corporate SSO logins are verified through the Firebase Admin SDK and
// auto-provisioned active; password signups are created pending approval and
// authenticated with an HS256 token signed by this service (the legacy path,
// kept for environments without Admin SDK credentials).
type AuthService struct {
	PG            *sql.DB
	authClient    *fbauth.Client
	jwtSecret     string
	allowedDomain string
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type LoginResponse struct {
	User    db.User `json:"user"`
	Token   string  `json:"token,omitempty"`
	Message string  `json:"message"`
}

func NewAuthService(pg *sql.DB) *AuthService {
	service := &AuthService{
		PG:            pg,
		jwtSecret:     config.App.JWTSecret,
		allowedDomain: config.App.AllowedSSODomain,
	}

	opt := option.WithCredentialsFile(config.App.FirebaseCredentialsFile)
	app, err := firebase.NewApp(context.Background(), &firebase.Config{
		ProjectID: config.App.FirebaseProjectID,
	}, opt)
	if err != nil {
		log.Printf("Firebase app not initialized: %v (falling back to HS256 token verification)", err)
		return service
	}

	client, err := app.Auth(context.Background())
	if err != nil {
		log.Printf("Firebase auth client not initialized: %v (falling back to HS256 token verification)", err)
		return service
	}

	service.authClient = client
	log.Println("Auth service: Firebase token verification initialized")
	return service
}

// ExtractTokenFromHeader pulls the bearer token out of an Authorization header
func (s *AuthService) ExtractTokenFromHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// VerifyToken validates a bearer token and returns the normalized claims.
// Firebase ID tokens are checked through the Admin SDK when configured;
// otherwise the HS256 shared-secret path is used.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*AuthClaims, error) {
	if s.authClient != nil {
		if decoded, err := s.authClient.VerifyIDToken(ctx, token); err == nil {
			return claimsFromFirebase(decoded), nil
		}
		// Fall through: locally issued password-login tokens are HS256.
	}
	return s.verifyLocalToken(token)
}

func claimsFromFirebase(decoded *fbauth.Token) *AuthClaims {
	claims := &AuthClaims{
		UserID:   decoded.UID,
		Provider: "sso",
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		claims.Name = name
	}
	if picture, ok := decoded.Claims["picture"].(string); ok {
		claims.PhotoURL = picture
	}
	return claims
}

type localClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

func (s *AuthService) verifyLocalToken(tokenStr string) (*AuthClaims, error) {
	if s.jwtSecret == "" {
		return nil, errors.New("no token verifier configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &localClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*localClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return &AuthClaims{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: "password",
	}, nil
}

// IsAllowedSSODomain checks the corporate e-mail domain restriction
func (s *AuthService) IsAllowedSSODomain(email string) bool {
	if s.allowedDomain == "" {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.EqualFold(email[at+1:], s.allowedDomain)
}

// HashPassword creates a bcrypt hash of the password
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// SignUp creates a password-based account in pending status. The profile
// stays locked out of every mutating action until an administrator approves
// it.
func (s *AuthService) SignUp(ctx context.Context, req SignupRequest) (*db.User, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, authz.ErrInvalidInput
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &db.User{
		ID:                 "local:" + strings.ToLower(req.Email),
		Name:               req.Name,
		Email:              strings.ToLower(req.Email),
		Funcao:             "Colaborador",
		AccessStatus:       db.AccessPending,
		AssignedProjectIDs: []string{},
		Version:            1,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO users (id, name, email, funcao, access_status, assigned_project_ids,
		                   password_hash, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '{}', $6, $7, $8, $9)
	`, user.ID, user.Name, user.Email, user.Funcao, user.AccessStatus, hash,
		user.Version, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolationErr(err) {
			return nil, fmt.Errorf("%w: email already registered", authz.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return user, nil
}

// Login authenticates a password account and issues an HS256 session token.
// Pending accounts may log in but only see the approval placeholder.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var user db.User
	var hash string
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, name, email, funcao, access_status, password_hash
		FROM users
		WHERE email = $1 AND password_hash IS NOT NULL
	`, strings.ToLower(req.Email)).Scan(&user.ID, &user.Name, &user.Email, &user.Funcao, &user.AccessStatus, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrForbidden
		}
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return nil, authz.ErrForbidden
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, err
	}

	message := "login successful"
	if user.IsPending() {
		message = "account pending administrator approval"
	}

	return &LoginResponse{User: user, Token: token, Message: message}, nil
}

func (s *AuthService) issueToken(user *db.User) (string, error) {
	if s.jwtSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := localClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			Issuer:    "norahub",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// SendPasswordReset delegates the reset mail to the identity provider
func (s *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	if s.authClient == nil {
		return errors.New("password reset unavailable: identity provider not configured")
	}
	link, err := s.authClient.PasswordResetLink(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to generate reset link: %w", err)
	}
	// Delivery itself is the provider's job; the link is logged for
	// diagnostics in self-hosted setups without mail templates.
	log.Printf("Password reset link generated for %s: %s", email, link)
	return nil
}
