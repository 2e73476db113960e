package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/logger"
)

// Token validation errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")
)

// DefaultClockSkew is the leeway applied to exp, nbf and iat.
const DefaultClockSkew = 30 * time.Second

// TokenValidator resolves an access token to the user it was issued for.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// JWTValidator validates HS256 access tokens issued by the auth provider.
// The user ID is taken from the sub claim.
type JWTValidator struct {
	signingKey []byte
	clockSkew  time.Duration
	timeFunc   func() time.Time
}

// NewJWTValidator creates a JWTValidator for the shared signing secret.
func NewJWTValidator(secret string) (*JWTValidator, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 characters")
	}
	return &JWTValidator{
		signingKey: []byte(secret),
		clockSkew:  DefaultClockSkew,
		timeFunc:   time.Now,
	}, nil
}

// ValidateToken implements TokenValidator.
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	log := logger.FromContext(ctx)

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.timeFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token validation failed: token expired")
			return uuid.Nil, ErrExpiredToken
		}
		log.Debug("token validation failed", "error_type", fmt.Sprintf("%T", err))
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		log.Debug("token validation failed: subject is not a user id")
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
