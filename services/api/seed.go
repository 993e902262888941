package api

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"riz/pkg/auth"
)

//go:embed seed/default.yaml
var defaultSeedPlan []byte

// SeedUser is one account in a provisioning plan. Manager names another
// account by identifier.
type SeedUser struct {
	Identifier      string `yaml:"identifier"`
	Email           string `yaml:"email"`
	Name            string `yaml:"name"`
	Password        string `yaml:"password"`
	Role            string `yaml:"role"`
	Department      string `yaml:"department"`
	Directorate     string `yaml:"directorate"`
	Position        string `yaml:"position"`
	BackgroundColor string `yaml:"backgroundColor"`
	Manager         string `yaml:"manager"`
}

// SeedPlan lists accounts to provision.
type SeedPlan struct {
	Users []SeedUser `yaml:"users"`
}

// SeedResult reports what a Seed run changed.
type SeedResult struct {
	Created  []string
	Skipped  []string
	Managers int
}

// SeedStore is the persistence surface needed for provisioning.
type SeedStore interface {
	CreateAccount(ctx context.Context, acct Account) (int64, bool, error)
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	SetManager(ctx context.Context, userID int64, managerID *int64) error
}

// DefaultSeedPlan returns the embedded plan.
func DefaultSeedPlan() (SeedPlan, error) {
	return LoadSeedPlan(defaultSeedPlan)
}

// LoadSeedPlan parses and validates a YAML plan.
func LoadSeedPlan(data []byte) (SeedPlan, error) {
	var plan SeedPlan
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return SeedPlan{}, fmt.Errorf("parse seed plan: %w", err)
	}
	if err := plan.validate(); err != nil {
		return SeedPlan{}, err
	}
	return plan, nil
}

func (p SeedPlan) validate() error {
	if len(p.Users) == 0 {
		return errors.New("seed plan has no users")
	}

	seen := make(map[string]struct{}, len(p.Users))
	emails := make(map[string]struct{}, len(p.Users))
	for i, u := range p.Users {
		if strings.TrimSpace(u.Identifier) == "" {
			return fmt.Errorf("seed user %d: identifier is required", i)
		}
		if _, dup := seen[u.Identifier]; dup {
			return fmt.Errorf("seed user %q: duplicate identifier", u.Identifier)
		}
		seen[u.Identifier] = struct{}{}

		if u.Email == "" || u.Name == "" {
			return fmt.Errorf("seed user %q: email and name are required", u.Identifier)
		}
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if _, dup := emails[email]; dup {
			return fmt.Errorf("seed user %q: duplicate email %q", u.Identifier, u.Email)
		}
		emails[email] = struct{}{}
		if _, err := auth.ParseRole(u.Role); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Identifier, err)
		}
		if err := auth.ValidateNewPassword(u.Password); err != nil {
			return fmt.Errorf("seed user %q: %w", u.Identifier, err)
		}
		if u.Manager == u.Identifier {
			return fmt.Errorf("seed user %q: %w", u.Identifier, ErrManagerCycle)
		}
	}
	return nil
}

// Seed inserts every plan account whose identifier is free, then applies the
// plan's manager references.
func Seed(ctx context.Context, store SeedStore, hasher *auth.Hasher, plan SeedPlan) (SeedResult, error) {
	var res SeedResult

	for _, u := range plan.Users {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			return res, fmt.Errorf("seed user %q: %w", u.Identifier, err)
		}
		hash, err := hasher.Hash([]byte(u.Password))
		if err != nil {
			return res, fmt.Errorf("hash password for %q: %w", u.Identifier, err)
		}

		_, created, err := store.CreateAccount(ctx, Account{
			User: User{
				Identifier:      u.Identifier,
				Email:           u.Email,
				Name:            u.Name,
				Role:            role,
				Department:      u.Department,
				Directorate:     u.Directorate,
				Position:        u.Position,
				BackgroundColor: u.BackgroundColor,
			},
			PasswordHash: hash,
			Status:       statusActive,
		})
		if err != nil {
			return res, err
		}
		if created {
			res.Created = append(res.Created, u.Identifier)
		} else {
			res.Skipped = append(res.Skipped, u.Identifier)
		}
	}

	for _, u := range plan.Users {
		if u.Manager == "" {
			continue
		}
		user, err := store.FindByIdentifier(ctx, u.Identifier)
		if err != nil {
			return res, fmt.Errorf("resolve %q: %w", u.Identifier, err)
		}
		manager, err := store.FindByIdentifier(ctx, u.Manager)
		if err != nil {
			return res, fmt.Errorf("resolve manager %q of %q: %w", u.Manager, u.Identifier, err)
		}
		if user.ManagerID != nil && *user.ManagerID == manager.ID {
			continue
		}
		managerID := manager.ID
		if err := store.SetManager(ctx, user.ID, &managerID); err != nil {
			return res, fmt.Errorf("set manager of %q: %w", u.Identifier, err)
		}
		res.Managers++
	}

	return res, nil
}
