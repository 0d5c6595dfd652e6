package identity

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Degrading sends sign-up and sign-in to Primary and retries them on
// Fallback when Primary is rate limited. Sessions from either provider are
// recognised.
type Degrading struct {
	Primary  Provider
	Fallback Provider
	Log      zerolog.Logger
}

func (d *Degrading) SignUp(ctx context.Context, email, password string) (*Session, error) {
	s, err := d.Primary.SignUp(ctx, email, password)
	if !errors.Is(err, ErrRateLimited) {
		return s, err
	}
	d.Log.Warn().Str("email", NormalizeEmail(email)).Msg("sign-up rate limited, using local accounts")
	return d.Fallback.SignUp(ctx, email, password)
}

func (d *Degrading) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := d.Primary.SignIn(ctx, email, password)
	if !errors.Is(err, ErrRateLimited) {
		return s, err
	}
	d.Log.Warn().Str("email", NormalizeEmail(email)).Msg("sign-in rate limited, using local accounts")
	return d.Fallback.SignIn(ctx, email, password)
}

func (d *Degrading) SignOut(ctx context.Context, token string) error {
	return errors.Join(
		d.Primary.SignOut(ctx, token),
		d.Fallback.SignOut(ctx, token),
	)
}

func (d *Degrading) CurrentSession(ctx context.Context, token string) (*Identity, error) {
	id, err := d.Primary.CurrentSession(ctx, token)
	if err != nil || id != nil {
		return id, err
	}
	return d.Fallback.CurrentSession(ctx, token)
}
