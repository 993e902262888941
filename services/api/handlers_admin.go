package api

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"riz/pkg/auth"
)

type newUserRequest struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	Role            string `json:"role"`
	Department      string `json:"department"`
	Directorate     string `json:"directorate"`
	Position        string `json:"position"`
	Status          string `json:"status"`
	BackgroundColor string `json:"backgroundColor"`
	ManagerID       *int64 `json:"managerId"`
}

type registerRequest struct {
	newUserRequest
	ConfirmPassword string `json:"confirmPassword"`
}

// saveUserRequest creates an account when ID is nil and updates it
// otherwise. Identifier and password are ignored on update.
type saveUserRequest struct {
	newUserRequest
	ID *int64 `json:"id"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// requirePermission resolves the session and checks the stored role.
func (a *API) requirePermission(r *http.Request, perm auth.Permission) (Account, error) {
	acct, err := a.sessionAccount(r)
	if err != nil {
		return Account{}, err
	}
	if err := auth.Authorize(acct.Role, perm); err != nil {
		return Account{}, forbiddenError("insufficient permissions", err)
	}
	return acct, nil
}

func managerError(err error) error {
	switch {
	case errors.Is(err, ErrManagerCycle):
		return validationError(ErrManagerCycle.Error())
	case errors.Is(err, ErrHierarchyTooDeep):
		return validationError(ErrHierarchyTooDeep.Error())
	case errors.Is(err, ErrUnknownManager):
		return validationError("manager not found")
	case errors.Is(err, ErrUserNotFound):
		return notFoundError("user not found")
	default:
		return storeError(err)
	}
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := a.requirePermission(r, auth.PermManageUsers); err != nil {
		userAdmin.WithLabelValues("list", "denied").Inc()
		a.writeError(w, r, err)
		return
	}

	users, err := a.users.ListAccounts(r.Context())
	if err != nil {
		userAdmin.WithLabelValues("list", "error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}
	if users == nil {
		users = []ManagedUser{}
	}

	userAdmin.WithLabelValues("list", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
}

func (a *API) handleSaveUser(w http.ResponseWriter, r *http.Request) {
	actor, err := a.requirePermission(r, auth.PermManageUsers)
	if err != nil {
		userAdmin.WithLabelValues("save", "denied").Inc()
		a.writeError(w, r, err)
		return
	}

	var req saveUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}

	if req.ID == nil {
		user, err := a.createUser(r.Context(), req.newUserRequest)
		a.respondCreated(w, r, "save", user, err)
		return
	}

	user, err := a.updateUser(r.Context(), actor, *req.ID, req.newUserRequest)
	if err != nil {
		userAdmin.WithLabelValues("update", "rejected").Inc()
		a.writeError(w, r, err)
		return
	}
	userAdmin.WithLabelValues("update", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) handleAddUser(w http.ResponseWriter, r *http.Request) {
	if _, err := a.requirePermission(r, auth.PermManageUsers); err != nil {
		userAdmin.WithLabelValues("add", "denied").Inc()
		a.writeError(w, r, err)
		return
	}

	var req newUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}
	user, err := a.createUser(r.Context(), req)
	a.respondCreated(w, r, "add", user, err)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if _, err := a.requirePermission(r, auth.PermManageUsers); err != nil {
		userAdmin.WithLabelValues("register", "denied").Inc()
		a.writeError(w, r, err)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.writeError(w, r, validationError("invalid request body"))
		return
	}
	if req.ConfirmPassword == "" {
		a.writeError(w, r, validationError("all fields are required"))
		return
	}
	if req.Password != req.ConfirmPassword {
		a.writeError(w, r, validationError("passwords do not match"))
		return
	}
	user, err := a.createUser(r.Context(), req.newUserRequest)
	a.respondCreated(w, r, "register", user, err)
}

func (a *API) respondCreated(w http.ResponseWriter, r *http.Request, action string, user User, err error) {
	if err != nil {
		userAdmin.WithLabelValues(action, "rejected").Inc()
		a.writeError(w, r, err)
		return
	}
	userAdmin.WithLabelValues(action, "success").Inc()
	a.log.Info().Int64("user_id", user.ID).Str("identifier", user.Identifier).Msg("account created")
	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Account created for " + user.Name,
		"user":    user,
	})
}

// createUser validates req and inserts an account. Errors are apiErrors.
func (a *API) createUser(ctx context.Context, req newUserRequest) (User, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Department = strings.TrimSpace(req.Department)

	if req.Identifier == "" || req.Name == "" || req.Email == "" || req.Password == "" ||
		strings.TrimSpace(req.Role) == "" || req.Department == "" {
		return User{}, validationError("all fields are required")
	}
	if !validEmail(req.Email) {
		return User{}, validationError("invalid email address")
	}
	if err := auth.ValidateNewPassword(req.Password); err != nil {
		return User{}, validationError(err.Error())
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return User{}, validationError("unknown role")
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		return User{}, validationError("unknown status")
	}

	switch _, err := a.users.FindByIdentifier(ctx, req.Identifier); {
	case err == nil:
		return User{}, conflictError(ErrDuplicateIdentifier.Error())
	case !errors.Is(err, ErrUserNotFound):
		return User{}, storeError(err)
	}
	inUse, err := a.users.EmailInUse(ctx, req.Email, 0)
	if err != nil {
		return User{}, storeError(err)
	}
	if inUse {
		return User{}, conflictError(ErrDuplicateEmail.Error())
	}
	if req.ManagerID != nil {
		switch _, err := a.users.FindByID(ctx, *req.ManagerID); {
		case errors.Is(err, ErrUserNotFound):
			return User{}, validationError("manager not found")
		case err != nil:
			return User{}, storeError(err)
		}
	}

	hash, err := a.hasher.Hash([]byte(req.Password))
	if err != nil {
		return User{}, storeError(err)
	}

	id, created, err := a.users.CreateAccount(ctx, Account{
		User: User{
			Identifier:      req.Identifier,
			Email:           req.Email,
			Name:            req.Name,
			Role:            role,
			Department:      req.Department,
			Directorate:     strings.TrimSpace(req.Directorate),
			Position:        strings.TrimSpace(req.Position),
			BackgroundColor: strings.TrimSpace(req.BackgroundColor),
		},
		PasswordHash: hash,
		Status:       status,
	})
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return User{}, conflictError(ErrDuplicateEmail.Error())
	case errors.Is(err, ErrDuplicateIdentifier), err == nil && !created:
		return User{}, conflictError(ErrDuplicateIdentifier.Error())
	case err != nil:
		return User{}, storeError(err)
	}

	if req.ManagerID != nil {
		if err := a.users.SetManager(ctx, id, req.ManagerID); err != nil {
			return User{}, managerError(err)
		}
	}

	acct, err := a.users.FindByID(ctx, id)
	if err != nil {
		return User{}, storeError(err)
	}
	return acct.User, nil
}

// updateUser overwrites the editable fields of userID and reassigns its
// manager, detaching it when req.ManagerID is nil.
func (a *API) updateUser(ctx context.Context, actor Account, userID int64, req newUserRequest) (User, error) {
	if _, err := a.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, notFoundError("user not found")
		}
		return User{}, storeError(err)
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || strings.TrimSpace(req.Role) == "" {
		return User{}, validationError("name, email and role are required")
	}
	if !validEmail(email) {
		return User{}, validationError("invalid email address")
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return User{}, validationError("unknown role")
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		return User{}, validationError("unknown status")
	}
	if userID == actor.ID && (status != statusActive || auth.Authorize(role, auth.PermManageUsers) != nil) {
		return User{}, validationError("cannot revoke your own access")
	}

	inUse, err := a.users.EmailInUse(ctx, email, userID)
	if err != nil {
		return User{}, storeError(err)
	}
	if inUse {
		return User{}, conflictError(ErrDuplicateEmail.Error())
	}

	if err := a.users.SetManager(ctx, userID, req.ManagerID); err != nil {
		return User{}, managerError(err)
	}

	department := strings.TrimSpace(req.Department)
	directorate := strings.TrimSpace(req.Directorate)
	position := strings.TrimSpace(req.Position)
	acct, err := a.users.UpdateUser(ctx, userID, UserChanges{
		Name:        &name,
		Email:       &email,
		Role:        &role,
		Department:  &department,
		Directorate: &directorate,
		Position:    &position,
		Status:      &status,
	})
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return User{}, conflictError(ErrDuplicateEmail.Error())
	case errors.Is(err, ErrUserNotFound):
		return User{}, notFoundError("user not found")
	case err != nil:
		return User{}, storeError(err)
	}
	return acct.User, nil
}
