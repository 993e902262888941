package api

import (
	"errors"
	"net/http"
)

// apiError carries the status and client-facing message for a failed request.
// err holds internal detail that is logged but never returned.
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error { return e.err }

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func validationError(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

func authError(message string) *apiError {
	return &apiError{status: http.StatusUnauthorized, message: message}
}

func forbiddenError(message string, err error) *apiError {
	return &apiError{status: http.StatusForbidden, message: message, err: err}
}

func notFoundError(message string) *apiError {
	return &apiError{status: http.StatusNotFound, message: message}
}

func conflictError(message string) *apiError {
	return &apiError{status: http.StatusConflict, message: message}
}

func storeError(err error) *apiError {
	return &apiError{status: http.StatusInternalServerError, message: "internal server error", err: err}
}

// writeError answers with err's status and message. Server-side failures are
// logged with full detail.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = storeError(err)
	}

	if apiErr.status >= http.StatusInternalServerError {
		a.log.Error().
			Err(apiErr.err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	respondJSON(w, apiErr.status, errorBody{Error: apiErr.message})
}
