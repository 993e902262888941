package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"riz/pkg/auth"
)

func parseID(r *http.Request, param string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return 0, validationError(param + " is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validationError(param + " must be a positive integer")
	}
	return id, nil
}

func (a *API) handleSubordinates(w http.ResponseWriter, r *http.Request) {
	managerID, err := parseID(r, "managerId")
	if err != nil {
		hierarchyQueries.WithLabelValues("subordinates", "invalid_request").Inc()
		a.writeError(w, r, err)
		return
	}

	users, err := a.users.ListSubordinates(r.Context(), managerID)
	if err != nil {
		hierarchyQueries.WithLabelValues("subordinates", "error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}
	if users == nil {
		users = []Subordinate{}
	}

	hierarchyQueries.WithLabelValues("subordinates", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
	})
}

func (a *API) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userId")
	if err != nil {
		hierarchyQueries.WithLabelValues("team", "invalid_request").Inc()
		a.writeError(w, r, err)
		return
	}

	chief, err := a.users.FindByID(r.Context(), userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		hierarchyQueries.WithLabelValues("team", "not_found").Inc()
		a.writeError(w, r, notFoundError("user not found"))
		return
	case err != nil:
		hierarchyQueries.WithLabelValues("team", "error").Inc()
		a.writeError(w, r, storeError(err))
		return
	}

	if err := auth.Authorize(chief.Role, auth.PermViewTeam); err != nil {
		hierarchyQueries.WithLabelValues("team", "forbidden").Inc()
		a.writeError(w, r, forbiddenError("only chiefs can view team members", err))
		return
	}

	// A chief without a department has no team.
	members := []TeamMember{}
	if strings.TrimSpace(chief.Department) != "" {
		members, err = a.users.ListTeam(r.Context(), chief.Department, auth.StaffRoles())
		if err != nil {
			hierarchyQueries.WithLabelValues("team", "error").Inc()
			a.writeError(w, r, storeError(err))
			return
		}
	}
	if members == nil {
		members = []TeamMember{}
	}

	hierarchyQueries.WithLabelValues("team", "success").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"codServ":      chief.Department,
		"totalMembers": len(members),
		"members":      members,
	})
}
