package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mailpilot/mailpilot/internal/config"
)

// ErrInvalidToken is returned for malformed, expired or foreign tokens
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and validates owner bearer tokens.
type TokenService struct {
	cfg    config.TokenConfig
	secret []byte
	now    func() time.Time
}

// TokenClaims represents the claims in an owner token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// OwnerID returns the subject, which is the owner every record is scoped to
func (c *TokenClaims) OwnerID() string {
	return c.Subject
}

// IssuedToken is a signed token with its expiry
type IssuedToken struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

// NewTokenService creates a TokenService signing with HMAC-SHA256.
func NewTokenService(cfg config.TokenConfig) (*TokenService, error) {
	if err := ValidateSecret(cfg.Secret, 0); err != nil {
		return nil, fmt.Errorf("invalid token secret: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &TokenService{cfg: cfg, secret: []byte(cfg.Secret), now: time.Now}, nil
}

// Issue signs a token for ownerID
func (s *TokenService) Issue(ownerID, email string) (*IssuedToken, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	now := s.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			ID:        uuid.New().String(),
		},
		Email: email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Validate verifies signature, issuer and expiry and returns the claims.
func (s *TokenService) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
