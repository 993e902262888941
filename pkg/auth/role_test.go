package auth

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "sef", want: RoleChief},
		{in: " expert ", want: RoleExpert},
		{in: "consilier", want: RoleAdvisor},
		{in: "", wantErr: true},
		{in: "Sef", wantErr: true},
		{in: "root", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownRole) {
				t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseRole(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestAuthorizeViewTeam(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleManager, RoleUser, RoleChief, RoleAdvisor, RoleExpert} {
		err := Authorize(role, PermViewTeam)
		if role == RoleChief {
			if err != nil {
				t.Errorf("Authorize(%s) = %v, want nil", role, err)
			}
			continue
		}
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Authorize(%s) = %v, want ErrForbidden", role, err)
		}
	}
}

func TestAuthorizeManageUsers(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleManager, RoleUser, RoleChief, RoleAdvisor, RoleExpert, Role("")} {
		err := Authorize(role, PermManageUsers)
		if role == RoleAdmin {
			if err != nil {
				t.Errorf("Authorize(%q) = %v, want nil", role, err)
			}
			continue
		}
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Authorize(%q) = %v, want ErrForbidden", role, err)
		}
	}
}

func TestStaffRolesReturnsCopy(t *testing.T) {
	roles := StaffRoles()
	if len(roles) != 2 || roles[0] != RoleAdvisor || roles[1] != RoleExpert {
		t.Fatalf("StaffRoles() = %v", roles)
	}
	roles[0] = RoleAdmin
	if StaffRoles()[0] != RoleAdvisor {
		t.Fatal("StaffRoles() exposed its backing slice")
	}
}
