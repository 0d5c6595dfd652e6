package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Accounts is the password provider over a UserStore. The same type serves
// the live provider (postgres users) and the local fallback (memory users);
// Offline marks which one issued a session.
type Accounts struct {
	Users   UserStore
	Tokens  *Tokens
	Revoked Revocations
	Limiter *Limiter
	Offline bool
	Now     func() time.Time
}

func (a *Accounts) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Accounts) allow(email string) error {
	if a.Limiter != nil && !a.Limiter.Allow(email) {
		return ErrRateLimited
	}
	return nil
}

func (a *Accounts) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	if err := a.allow(email); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         DisplayName(email),
		Role:         RoleCustomer,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return a.Tokens.Issue(u.Identity(a.Offline))
}

func (a *Accounts) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if err := a.allow(email); err != nil {
		return nil, err
	}
	u, err := a.Users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return a.Tokens.Issue(u.Identity(a.Offline))
}

// SignOut revokes the token. A token that no longer parses is already
// signed out, so it is not an error.
func (a *Accounts) SignOut(ctx context.Context, token string) error {
	p, err := a.Tokens.Parse(token)
	if err != nil {
		return nil
	}
	ttl := p.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	return a.Revoked.Revoke(ctx, p.JTI, ttl)
}

func (a *Accounts) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	p, err := a.Tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	if p.Identity.Offline != a.Offline {
		return nil, nil
	}
	revoked, err := a.Revoked.Revoked(ctx, p.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}
	id := p.Identity
	return &id, nil
}
