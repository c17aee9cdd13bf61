package service

import (
	"crypto/subtle"
	"errors"
	"surveyflow/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthConfig holds the single owner account of a deployment
type AuthConfig struct {
	Username string
	Password string
	TenantID string
	Secret   string
	TokenTTL time.Duration
}

// AuthService handles survey owner authentication
type AuthService struct {
	ownerUsername string
	ownerPassword string
	tenantID      string
	jwtSecret     []byte
	tokenTTL      time.Duration
	now           func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthConfig) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		ownerUsername: cfg.Username,
		ownerPassword: cfg.Password,
		tenantID:      cfg.TenantID,
		jwtSecret:     []byte(cfg.Secret),
		tokenTTL:      ttl,
		now:           time.Now,
	}
}

// Login validates credentials and returns a signed owner token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.ownerUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.ownerPassword)) == 1
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	// Stable across logins so surveys stay attributed to the same owner
	ownerID := "owner_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.tenantID+"/"+username)).String()[:8]
	now := s.now()

	claims := &model.OwnerClaims{
		OwnerID:  ownerID,
		TenantID: s.tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:    tokenString,
		OwnerID:  ownerID,
		TenantID: s.tenantID,
	}, nil
}

// ValidateOwnerToken validates an owner JWT and returns claims
func (s *AuthService) ValidateOwnerToken(tokenString string) (*model.OwnerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.OwnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.OwnerClaims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
