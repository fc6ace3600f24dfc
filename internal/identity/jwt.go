package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// JWTResolver resolves requests carrying an HS256 bearer token. The token
// subject becomes the namespace via NamespaceFor.
type JWTResolver struct {
	signingKey   []byte
	requireToken bool
	clockSkew    time.Duration
	timeFunc     func() time.Time // Injectable for testing
}

var _ Resolver = (*JWTResolver)(nil)

// JWTOption customizes a JWTResolver.
type JWTOption func(*JWTResolver)

// RequireToken makes requests without an Authorization header fail with
// ErrMissingToken instead of resolving to the anonymous namespace.
func RequireToken() JWTOption {
	return func(r *JWTResolver) { r.requireToken = true }
}

// WithTimeFunc overrides the clock used to validate time claims.
func WithTimeFunc(fn func() time.Time) JWTOption {
	return func(r *JWTResolver) { r.timeFunc = fn }
}

// NewJWTResolver creates a resolver validating tokens signed with secret.
func NewJWTResolver(secret string, opts ...JWTOption) (*JWTResolver, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrInvalidSecret
	}
	r := &JWTResolver{
		signingKey: []byte(secret),
		clockSkew:  2 * time.Minute, // Allow 2 minutes of clock skew
		timeFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve implements Resolver.
func (j *JWTResolver) Resolve(r *http.Request) (Identity, error) {
	log := logger.FromContext(r.Context())

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if j.requireToken {
			return Identity{}, ErrMissingToken
		}
		return Identity{}, nil
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		log.Debug("identity resolution failed: invalid authorization format")
		return Identity{}, ErrInvalidToken
	}

	subject, err := j.validate(parts[1])
	if err != nil {
		log.Debug("identity resolution failed", slog.String("error", err.Error()))
		return Identity{}, err
	}
	return Identity{Subject: subject, Namespace: NamespaceFor(subject)}, nil
}

func (j *JWTResolver) validate(tokenString string) (string, error) {
	now := j.timeFunc()
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return j.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(j.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 token for subject that expires after ttl.
func (j *JWTResolver) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	now := j.timeFunc()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}
