package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	modeLive    = "live"
	modeOffline = "offline"
)

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Mode  string `json:"mode"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (t *Tokens) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tokens) Issue(id Identity) (*Session, error) {
	now := t.now()
	exp := now.Add(t.TTL)
	mode := modeLive
	if id.Offline {
		mode = modeOffline
	}
	c := claims{
		Email: id.Email,
		Name:  id.Name,
		Role:  id.Role,
		Mode:  mode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.Secret)
	if err != nil {
		return nil, fmt.Errorf("identity: sign token: %w", err)
	}
	return &Session{Token: signed, Identity: id, ExpiresAt: exp}, nil
}

// Parsed is a verified token: who it belongs to, its id and when it lapses.
type Parsed struct {
	Identity  Identity
	JTI       string
	ExpiresAt time.Time
}

func (t *Tokens) Parse(token string) (*Parsed, error) {
	var c claims
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.After(t.now()) {
		return nil, ErrInvalidSession
	}
	return &Parsed{
		Identity: Identity{
			ID:      c.Subject,
			Email:   c.Email,
			Name:    c.Name,
			Role:    c.Role,
			Offline: c.Mode == modeOffline,
		},
		JTI:       c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
