package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"riz/pkg/auth"
)

const (
	statusActive   = "active"
	statusInactive = "inactive"

	defaultBackgroundColor = "#f9fafb"
)

var (
	// ErrUserNotFound is returned by stores when no row matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidResetToken is returned when a reset token is unknown, expired or
	// belongs to an inactive account.
	ErrInvalidResetToken = errors.New("invalid or expired token")
	// ErrDuplicateIdentifier and ErrDuplicateEmail report a uniqueness clash.
	ErrDuplicateIdentifier = errors.New("identifier already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
)

// User is the sanitized profile returned to clients.
type User struct {
	ID              int64     `json:"id"`
	Identifier      string    `json:"identifier"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	Role            auth.Role `json:"role"`
	Department      string    `json:"department,omitempty"`
	Directorate     string    `json:"directorate,omitempty"`
	Position        string    `json:"position,omitempty"`
	ManagerID       *int64    `json:"managerId,omitempty"`
	BackgroundColor string    `json:"backgroundColor"`
}

// Account is a user row including credential fields. It is never written to
// a response directly.
type Account struct {
	User
	PasswordHash string
	Status       string
	UpdatedAt    time.Time
}

// Active reports whether the account may log in or reset its password.
func (a Account) Active() bool { return a.Status == statusActive }

func parseStatus(s string) (string, error) {
	switch strings.TrimSpace(s) {
	case "", statusActive:
		return statusActive, nil
	case statusInactive:
		return statusInactive, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// UserChanges lists the profile fields to overwrite. Nil fields are kept.
type UserChanges struct {
	Name        *string
	Email       *string
	Role        *auth.Role
	Department  *string
	Directorate *string
	Position    *string
	Status      *string
}

func (c UserChanges) columns() map[string]any {
	cols := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("name", c.Name)
	if c.Email != nil {
		cols["email"] = strings.ToLower(strings.TrimSpace(*c.Email))
	}
	if c.Role != nil {
		cols["role"] = string(*c.Role)
	}
	set("department", c.Department)
	set("directorate", c.Directorate)
	set("position", c.Position)
	set("status", c.Status)
	return cols
}

// ManagedUser is one row of the administrative user listing.
type ManagedUser struct {
	ID               int64   `json:"id" db:"id"`
	Identifier       string  `json:"identifier" db:"identifier"`
	Email            string  `json:"email" db:"email"`
	Name             string  `json:"name" db:"name"`
	Role             string  `json:"role" db:"role"`
	Department       string  `json:"department" db:"department"`
	Directorate      string  `json:"directorate" db:"directorate"`
	Position         string  `json:"position" db:"position"`
	Status           string  `json:"status" db:"status"`
	ManagerID        *int64  `json:"managerId" db:"manager_id"`
	ManagerName      *string `json:"managerName" db:"manager_name"`
	SubordinateCount int64   `json:"subordinateCount" db:"subordinate_count"`
}

// Subordinate is one entry of the subordinates listing.
type Subordinate struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Identifier string `json:"identifier" db:"identifier"`
	Email      string `json:"email" db:"email"`
	Department string `json:"department" db:"department"`
	Position   string `json:"position" db:"position"`
	Role       string `json:"role" db:"role"`
}

// TeamMember is one entry of a chief's team roster. Position carries the
// member's function code, i.e. its role.
type TeamMember struct {
	ID              int64  `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Position        string `json:"position" db:"role"`
	Identifier      string `json:"identifier" db:"identifier"`
	Department      string `json:"department" db:"department"`
	Email           string `json:"email" db:"email"`
	BackgroundColor string `json:"backgroundColor" db:"background_color"`
}
