package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTTL is the fixed lifetime of a session token.
const SessionTTL = 7 * 24 * time.Hour

// MinSecretLength is the shortest HMAC secret accepted by NewTokenIssuer.
const MinSecretLength = 32

var ErrWeakSecret = errors.New("auth: signing secret must be at least 32 bytes")

// Payload is the identity embedded into a session token.
type Payload struct {
	UserID int64
	Email  string
	Role   Role
}

// Session is a verified token.
type Session struct {
	Payload
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// sessionClaims uses pointers so a token missing one of the identity claims
// can be told apart from one carrying a zero value.
type sessionClaims struct {
	UserID *int64  `json:"userId"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption customises a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewTokenIssuer(secret []byte, opts ...IssuerOption) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	i := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    SessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// CreateToken signs a token for p that expires SessionTTL after issuance.
func (i *TokenIssuer) CreateToken(p Payload) (string, error) {
	now := i.now().UTC()
	email := p.Email
	role := string(p.Role)
	userID := p.UserID

	claims := sessionClaims{
		UserID: &userID,
		Email:  &email,
		Role:   &role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken reports whether token is a valid, unexpired session token
// signed by this issuer. Any failure yields (nil, false).
func (i *TokenIssuer) VerifyToken(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}

	if claims.UserID == nil || claims.Email == nil || claims.Role == nil {
		return nil, false
	}
	role, err := ParseRole(*claims.Role)
	if err != nil {
		return nil, false
	}

	s := &Session{
		Payload: Payload{
			UserID: *claims.UserID,
			Email:  *claims.Email,
			Role:   role,
		},
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, true
}
