package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinJWTKeyLength is the shortest HS256 signing key accepted.
const MinJWTKeyLength = 32

// JWTClaims represents the access token claims
type JWTClaims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// AccessToken is a signed bearer token and its absolute expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// JWTService handles JWT token operations
type JWTService struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(issuer, audience, secret string, ttl time.Duration) (*JWTService, error) {
	if len(secret) < MinJWTKeyLength {
		return nil, fmt.Errorf("jwt key must be at least %d characters", MinJWTKeyLength)
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("jwt issuer and audience are required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt ttl must be positive, got %s", ttl)
	}
	return &JWTService{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// IssueAccessToken creates an HS256 access token for the user and phone number
func (s *JWTService) IssueAccessToken(userID uuid.UUID, phoneNumber string) (AccessToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := &JWTClaims{
		PhoneNumber: phoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{s.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return AccessToken{Token: tokenString, ExpiresAt: expiresAt}, nil
}

// VerifyToken verifies and parses a JWT token, checking signature, issuer, audience and lifetime
func (s *JWTService) VerifyToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// UserID returns the subject claim as a user id
func (c *JWTClaims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	return id, nil
}
