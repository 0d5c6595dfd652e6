package handlers

import (
	"errors"
	"net/http"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/identity"
)

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	s, err := a.Identity.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		a.authError(w, err, "sign-up")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if !decode(w, r, &req) {
		return
	}
	s, err := a.Identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		a.authError(w, err, "sign-in")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SignOut revokes the session and empties the cart named by the cart header.
func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.Identity.SignOut(r.Context(), bearer(r)); err != nil {
		a.Log.Error().Err(err).Msg("sign-out failed")
		http.Error(w, "could not sign out, please try again", http.StatusInternalServerError)
		return
	}
	if id := r.Header.Get(CartHeader); id != "" {
		if err := a.Carts.Clear(r.Context(), cart.Key(id)); err != nil {
			a.Log.Warn().Err(err).Msg("cart clear on sign-out failed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	id, err := a.session(r)
	if err != nil {
		a.Log.Error().Err(err).Msg("session lookup failed")
		http.Error(w, "could not check session", http.StatusInternalServerError)
		return
	}
	if id == nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (a *API) authError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, identity.ErrUserExists):
		http.Error(w, "an account with this email already exists", http.StatusConflict)
	case errors.Is(err, identity.ErrWeakPassword):
		http.Error(w, "password must have at least 6 characters", http.StatusBadRequest)
	case errors.Is(err, identity.ErrRateLimited):
		http.Error(w, "too many attempts, wait a minute and try again", http.StatusTooManyRequests)
	default:
		a.Log.Error().Err(err).Str("op", op).Msg("auth failed")
		http.Error(w, "authentication is unavailable, please try again", http.StatusInternalServerError)
	}
}
