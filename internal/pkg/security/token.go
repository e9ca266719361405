package security

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

const (
	DefaultTokenTTL = 12 * time.Hour
	tokenIssuer     = "bantaydalan"
)

// SubjectKind tells admin tokens and reporter tokens apart.
type SubjectKind string

const (
	SubjectAdmin SubjectKind = "admin"
	SubjectUser  SubjectKind = "user"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongSubject = errors.New("token subject kind does not match")
)

type Claims struct {
	Kind     SubjectKind `json:"kind"`
	Username string      `json:"username"`
	jwt.RegisteredClaims
}

// SubjectID parses the numeric account id from the subject claim.
func (c *Claims) SubjectID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Remaining is how long the token stays valid from now.
func (c *Claims) Remaining() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("secret is required for token generation")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

var (
	defaultIssuer     *TokenIssuer
	defaultIssuerOnce sync.Once
)

// DefaultIssuer is configured from JWT_SECRET and JWT_TTL. It panics without a secret.
func DefaultIssuer() *TokenIssuer {
	defaultIssuerOnce.Do(func() {
		issuer, err := NewTokenIssuer(env.GetEnv("JWT_SECRET", ""), env.GetDuration("JWT_TTL", DefaultTokenTTL))
		if err != nil {
			panic(fmt.Errorf("JWT_SECRET: %w", err))
		}
		defaultIssuer = issuer
	})
	return defaultIssuer
}

// TTL is the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the given account.
func (i *TokenIssuer) Issue(kind SubjectKind, id uint, username string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		Kind:     kind,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature, expiry and subject kind.
func (i *TokenIssuer) Verify(tokenString string, kind SubjectKind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongSubject
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, err
	}
	return claims, nil
}
