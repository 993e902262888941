package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"riz/pkg/auth"
)

const resetRequestedMessage = "If an account matches, reset instructions have been sent."

type forgotPasswordRequest struct {
	Identifier string `json:"identifier"`
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		a.writeError(w, r, validationError("identifier or email is required"))
		return
	}

	outcome := a.requestReset(r, identifier)
	passwordResets.WithLabelValues("request", outcome).Inc()

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": resetRequestedMessage,
	})
}

// requestReset issues and delivers a reset token when an active account
// matches. Every failure is logged here; the caller always answers with the
// same generic message.
func (a *API) requestReset(r *http.Request, identifier string) string {
	ctx := r.Context()

	acct, err := a.users.FindForReset(ctx, identifier)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "no_match"
	case err != nil:
		a.log.Error().Err(err).Msg("look up account for password reset")
		return "error"
	}

	token, err := auth.NewResetToken()
	if err != nil {
		a.log.Error().Err(err).Msg("generate reset token")
		return "error"
	}
	expiry := a.now().Add(auth.ResetTokenTTL)

	if err := a.users.SetResetToken(ctx, acct.ID, token, expiry); err != nil {
		a.log.Error().Err(err).Int64("user_id", acct.ID).Msg("store reset token")
		return "error"
	}

	notice := ResetNotice{
		Email:      acct.Email,
		Name:       acct.Name,
		Identifier: acct.Identifier,
		Link:       a.config.AppURL + "/reset-password?token=" + url.QueryEscape(token),
		ExpiresAt:  expiry,
	}
	if err := a.notifier.SendPasswordReset(ctx, notice); err != nil {
		a.log.Error().Err(err).Int64("user_id", acct.ID).Msg("deliver reset notice")
		if err := a.users.ClearResetToken(ctx, acct.ID); err != nil {
			a.log.Error().Err(err).Int64("user_id", acct.ID).Msg("clear undelivered reset token")
		}
		return "delivery_failed"
	}

	a.publishEvent(ctx, resetRequestTopic, acct.ID)
	return "sent"
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" || req.Password == "" {
		passwordResets.WithLabelValues("confirm", "invalid_request").Inc()
		a.writeError(w, r, validationError("token and password are required"))
		return
	}
	if err := auth.ValidateNewPassword(req.Password); err != nil {
		passwordResets.WithLabelValues("confirm", "invalid_request").Inc()
		a.writeError(w, r, validationError(err.Error()))
		return
	}

	hash, err := a.hasher.Hash([]byte(req.Password))
	if err != nil {
		passwordResets.WithLabelValues("confirm", "error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}

	userID, err := a.users.ConsumeResetToken(r.Context(), token, hash, a.now())
	switch {
	case errors.Is(err, ErrInvalidResetToken):
		passwordResets.WithLabelValues("confirm", "invalid_token").Inc()
		a.writeError(w, r, validationError(ErrInvalidResetToken.Error()))
		return
	case err != nil:
		passwordResets.WithLabelValues("confirm", "error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}

	passwordResets.WithLabelValues("confirm", "success").Inc()
	a.publishEvent(r.Context(), resetCompleteTopic, userID)

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password has been reset",
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, err := a.sessionAccount(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		a.writeError(w, r, validationError("current and new password are required"))
		return
	}
	if err := auth.ValidateNewPassword(req.NewPassword); err != nil {
		a.writeError(w, r, validationError(err.Error()))
		return
	}

	if err := a.hasher.Compare(acct.PasswordHash, []byte(req.CurrentPassword)); err != nil {
		a.writeError(w, r, authError("current password is incorrect"))
		return
	}

	hash, err := a.hasher.Hash([]byte(req.NewPassword))
	if err != nil {
		a.writeError(w, r, storeError(err))
		return
	}
	if err := a.users.UpdatePasswordHash(r.Context(), acct.ID, hash); err != nil {
		a.writeError(w, r, storeError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed",
	})
}
