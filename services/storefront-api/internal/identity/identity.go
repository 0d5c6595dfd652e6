package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrRateLimited        = errors.New("identity: too many attempts, try again shortly")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrUserExists         = errors.New("identity: an account with this email already exists")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrInvalidSession     = errors.New("identity: invalid or expired session")
	ErrWeakPassword       = errors.New("identity: password must have at least 6 characters")
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the authenticated buyer. Offline is set for identities issued
// by the local provider; their purchases never touch the live stores.
type Identity struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar,omitempty"`
	Role    Role   `json:"role"`
	Offline bool   `json:"offline"`
}

type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider is the authentication capability the storefront depends on.
// CurrentSession returns (nil, nil) when the token carries no usable session.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*Identity, error)
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	CreatedAt    time.Time
}

func (u User) Identity(offline bool) Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Offline: offline}
}

// UserStore persists accounts. Create returns ErrUserExists for a taken
// email and FindByEmail returns ErrUserNotFound.
type UserStore interface {
	Create(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
}

// Revocations remembers signed-out token ids until they would have expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName is the local part of the email, used until the buyer sets a name.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
