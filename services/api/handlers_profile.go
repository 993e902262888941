package api

import (
	"errors"
	"net/http"
	"strings"

	"riz/pkg/auth"
)

type profileRequest struct {
	UserID *int64 `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// profileTarget returns the account a profile request acts on. Callers may
// always act on themselves; other accounts need PermManageUsers.
func (a *API) profileTarget(r *http.Request, actor Account, userID *int64) (Account, error) {
	if userID == nil || *userID == actor.ID {
		return actor, nil
	}
	if err := auth.Authorize(actor.Role, auth.PermManageUsers); err != nil {
		return Account{}, forbiddenError("cannot access another user's profile", err)
	}

	acct, err := a.users.FindByID(r.Context(), *userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return Account{}, notFoundError("user not found")
	case err != nil:
		return Account{}, storeError(err)
	}
	return acct, nil
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := a.sessionAccount(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var userID *int64
	if r.URL.Query().Has("userId") {
		id, err := parseID(r, "userId")
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		userID = &id
	}

	target, err := a.profileTarget(r, actor, userID)
	if err != nil {
		userAdmin.WithLabelValues("profile_view", "rejected").Inc()
		a.writeError(w, r, err)
		return
	}

	userAdmin.WithLabelValues("profile_view", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    target.User,
	})
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := a.sessionAccount(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}
	if req.UserID != nil && *req.UserID <= 0 {
		a.writeError(w, r, validationError("userId must be a positive integer"))
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" && email == "" {
		a.writeError(w, r, validationError("name or email is required"))
		return
	}
	if email != "" && !validEmail(email) {
		a.writeError(w, r, validationError("invalid email address"))
		return
	}

	target, err := a.profileTarget(r, actor, req.UserID)
	if err != nil {
		userAdmin.WithLabelValues("profile_update", "rejected").Inc()
		a.writeError(w, r, err)
		return
	}

	var changes UserChanges
	if name != "" {
		changes.Name = &name
	}
	if email != "" {
		inUse, err := a.users.EmailInUse(r.Context(), email, target.ID)
		if err != nil {
			a.writeError(w, r, storeError(err))
			return
		}
		if inUse {
			userAdmin.WithLabelValues("profile_update", "rejected").Inc()
			a.writeError(w, r, conflictError(ErrDuplicateEmail.Error()))
			return
		}
		changes.Email = &email
	}

	updated, err := a.users.UpdateUser(r.Context(), target.ID, changes)
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		a.writeError(w, r, conflictError(ErrDuplicateEmail.Error()))
		return
	case errors.Is(err, ErrUserNotFound):
		a.writeError(w, r, notFoundError("user not found"))
		return
	case err != nil:
		a.writeError(w, r, storeError(err))
		return
	}

	userAdmin.WithLabelValues("profile_update", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated",
		"user":    updated.User,
	})
}
