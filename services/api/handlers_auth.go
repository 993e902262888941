package api

import (
	"errors"
	"net/http"
	"strings"

	"riz/pkg/auth"
)

const invalidCredentials = "invalid identifier or password"

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		loginAttempts.WithLabelValues("invalid_request").Inc()
		a.writeError(w, r, validationError("invalid request body"))
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		loginAttempts.WithLabelValues("invalid_request").Inc()
		a.writeError(w, r, validationError("identifier and password are required"))
		return
	}

	acct, err := a.users.FindByIdentifier(r.Context(), identifier)
	switch {
	case errors.Is(err, ErrUserNotFound):
		a.hasher.CompareDummy([]byte(req.Password))
		a.rejectLogin(w, r, "unknown_user")
		return
	case err != nil:
		loginAttempts.WithLabelValues("error").Inc()
		a.writeError(w, r, storeError(err))
		return
	case !acct.Active():
		a.hasher.CompareDummy([]byte(req.Password))
		a.rejectLogin(w, r, "inactive")
		return
	}

	if err := a.hasher.Compare(acct.PasswordHash, []byte(req.Password)); err != nil {
		a.rejectLogin(w, r, "bad_password")
		return
	}

	role, err := auth.ParseRole(string(acct.Role))
	if err != nil {
		a.log.Warn().Err(err).Int64("user_id", acct.ID).Msg("account has an unknown role")
		a.rejectLogin(w, r, "bad_role")
		return
	}

	token, err := a.tokens.CreateToken(auth.Payload{UserID: acct.ID, Email: acct.Email, Role: role})
	if err != nil {
		loginAttempts.WithLabelValues("error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, a.config.CookieSecure))
	loginAttempts.WithLabelValues("success").Inc()
	a.publishEvent(r.Context(), loginTopic, acct.ID)

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome, " + acct.Name + "!",
		"user":    acct.User,
	})
}

// rejectLogin answers every credential failure with the same body.
func (a *API) rejectLogin(w http.ResponseWriter, r *http.Request, outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
	a.writeError(w, r, authError(invalidCredentials))
}

func (a *API) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, auth.ClearedCookie(a.config.CookieSecure))
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
	})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	acct, err := a.sessionAccount(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    acct.User,
	})
}

// sessionAccount resolves the caller's cookie to a live, active account.
func (a *API) sessionAccount(r *http.Request) (Account, error) {
	session, ok := a.tokens.SessionFromRequest(r)
	if !ok {
		return Account{}, authError("not authenticated")
	}

	acct, err := a.users.FindByID(r.Context(), session.UserID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return Account{}, authError("not authenticated")
	case err != nil:
		return Account{}, storeError(err)
	case !acct.Active():
		return Account{}, authError("not authenticated")
	}
	return acct, nil
}
