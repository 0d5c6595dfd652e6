package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/shared/pkg/cache"
)

type UsersPG struct{ DB DB }

func (r *UsersPG) Create(ctx context.Context, u identity.User) error {
	_, err := r.DB.Exec(ctx, `
		insert into users(id, email, password_hash, name, role, created_at)
		values ($1::uuid, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.CreatedAt)
	if isUniqueViolation(err) {
		return identity.ErrUserExists
	}
	return err
}

func (r *UsersPG) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	var (
		u    identity.User
		role string
	)
	err := r.DB.QueryRow(ctx, `
		select id::text, email, password_hash, name, role, created_at
		from users
		where email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, identity.ErrUserNotFound
	}
	if err != nil {
		return identity.User{}, err
	}
	u.Role = identity.Role(role)
	return u, nil
}

// SessionsRedis keeps revoked token ids in redis with the token's remaining lifetime.
type SessionsRedis struct{ Redis *cache.Redis }

func revokedKey(jti string) string { return "session:revoked:" + jti }

func (s *SessionsRedis) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return s.Redis.SetString(ctx, revokedKey(jti), "1", ttl)
}

func (s *SessionsRedis) Revoked(ctx context.Context, jti string) (bool, error) {
	_, err := s.Redis.GetString(ctx, revokedKey(jti))
	if cache.IsMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
