package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riz/pkg/auth"
	"riz/pkg/db"
	"riz/pkg/db/migrations"
)

// UserStore is the persistence surface used by the HTTP handlers.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	// FindForReset matches an active account by identifier or, case
	// insensitively, by email.
	FindForReset(ctx context.Context, identifierOrEmail string) (Account, error)
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	ClearResetToken(ctx context.Context, userID int64) error
	// ConsumeResetToken replaces the password hash and clears the token in a
	// single statement. It returns ErrInvalidResetToken when no active account
	// holds an unexpired matching token.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error)
	UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error
	ListSubordinates(ctx context.Context, managerID int64) ([]Subordinate, error)
	ListTeam(ctx context.Context, department string, roles []auth.Role) ([]TeamMember, error)
	Ping(ctx context.Context) error

	ListAccounts(ctx context.Context) ([]ManagedUser, error)
	// CreateAccount returns ErrDuplicateEmail when the email is taken; a taken
	// identifier is reported through the bool.
	CreateAccount(ctx context.Context, acct Account) (int64, bool, error)
	// UpdateUser applies changes and returns the stored account. It returns
	// ErrDuplicateEmail when the new email belongs to another account.
	UpdateUser(ctx context.Context, userID int64, changes UserChanges) (Account, error)
	EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error)
	SetManager(ctx context.Context, userID int64, managerID *int64) error
}

// Store holds external dependencies required by the API layer.
type Store struct {
	DB  *pgxpool.Pool
	ORM *gorm.DB
}

var _ UserStore = (*Store)(nil)

// managerTreeLock serialises manager reassignments so concurrent moves
// cannot each pass the chain walk and together close a cycle.
const managerTreeLock int64 = 0x72697a01

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// uniqueViolation maps a unique index clash on users to a domain error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case migrations.UsersEmailIndex:
		return ErrDuplicateEmail
	case "idx_users_identifier":
		return ErrDuplicateIdentifier
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, query any, args ...any) (Account, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var model userModel
	err := s.ORM.WithContext(ctx).Where(query, args...).Order("id").First(&model).Error
	switch {
	case notFound(err):
		return Account{}, ErrUserNotFound
	case err != nil:
		return Account{}, err
	}
	return model.toAccount(), nil
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (Account, error) {
	acct, err := s.findOne(ctx, "identifier = ?", identifier)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return Account{}, fmt.Errorf("find user by identifier: %w", err)
	}
	return acct, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (Account, error) {
	acct, err := s.findOne(ctx, "id = ?", id)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return Account{}, fmt.Errorf("find user %d: %w", id, err)
	}
	return acct, err
}

func (s *Store) FindForReset(ctx context.Context, identifierOrEmail string) (Account, error) {
	acct, err := s.findOne(ctx,
		"(identifier = ? OR lower(email) = ?) AND status = ?",
		identifierOrEmail, strings.ToLower(identifierOrEmail), statusActive,
	)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return Account{}, fmt.Errorf("find user for reset: %w", err)
	}
	return acct, err
}

func (s *Store) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	return s.updateUser(ctx, userID, map[string]any{
		"reset_token":        token,
		"reset_token_expiry": expiry.UTC(),
	})
}

func (s *Store) ClearResetToken(ctx context.Context, userID int64) error {
	return s.updateUser(ctx, userID, map[string]any{
		"reset_token":        nil,
		"reset_token_expiry": nil,
	})
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	return s.updateUser(ctx, userID, map[string]any{
		"password_hash": passwordHash,
	})
}

func (s *Store) updateUser(ctx context.Context, userID int64, updates map[string]any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	updates["updated_at"] = time.Now().UTC()
	res := s.ORM.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var updated []userModel
	res := s.ORM.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("reset_token = ? AND reset_token_expiry > ? AND status = ?", token, now.UTC(), statusActive).
		Updates(map[string]any{
			"password_hash":      passwordHash,
			"reset_token":        nil,
			"reset_token_expiry": nil,
			"updated_at":         now.UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("consume reset token: %w", res.Error)
	}
	if res.RowsAffected == 0 || len(updated) == 0 {
		return 0, ErrInvalidResetToken
	}
	return updated[0].ID, nil
}

func (s *Store) ListSubordinates(ctx context.Context, managerID int64) ([]Subordinate, error) {
	const q = `
SELECT id, name, identifier, email, department, position, role
FROM users
WHERE manager_id = $1
ORDER BY name ASC, id ASC`

	out := []Subordinate{}
	if err := db.Select(ctx, s.DB, &out, q, managerID); err != nil {
		return nil, fmt.Errorf("list subordinates of %d: %w", managerID, err)
	}
	return out, nil
}

func (s *Store) ListTeam(ctx context.Context, department string, roles []auth.Role) ([]TeamMember, error) {
	const q = `
SELECT id, name, role, identifier, department, email, background_color
FROM users
WHERE department = $1 AND role = ANY($2)
ORDER BY role ASC, name ASC`

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	out := []TeamMember{}
	if err := db.Select(ctx, s.DB, &out, q, department, names); err != nil {
		return nil, fmt.Errorf("list team of %q: %w", department, err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return db.Ping(ctx, s.DB)
}

// SetManager points userID at managerID, or detaches it when managerID is
// nil. The assignment is rejected when it would close a cycle.
func (s *Store) SetManager(ctx context.Context, userID int64, managerID *int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return s.ORM.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", managerTreeLock).Error; err != nil {
			return fmt.Errorf("lock manager tree: %w", err)
		}

		var user userModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if notFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		if managerID != nil {
			lookup := func(ctx context.Context, id int64) (*int64, error) {
				var m userModel
				if err := tx.WithContext(ctx).Select("id", "manager_id").First(&m, "id = ?", id).Error; err != nil {
					if notFound(err) {
						return nil, fmt.Errorf("%w: %d", ErrUnknownManager, id)
					}
					return nil, err
				}
				return m.ManagerID, nil
			}
			if err := checkManagerChain(ctx, userID, *managerID, lookup); err != nil {
				return err
			}
		}

		return tx.Model(&userModel{}).Where("id = ?", userID).Updates(map[string]any{
			"manager_id": managerID,
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

// CreateAccount inserts acct unless its identifier is already taken. The
// returned bool reports whether a row was written.
func (s *Store) CreateAccount(ctx context.Context, acct Account) (int64, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := userModel{
		Identifier:      acct.Identifier,
		Email:           strings.ToLower(acct.Email),
		PasswordHash:    acct.PasswordHash,
		Name:            acct.Name,
		Role:            string(acct.Role),
		Department:      acct.Department,
		Directorate:     acct.Directorate,
		Position:        acct.Position,
		BackgroundColor: acct.BackgroundColor,
		Status:          acct.Status,
	}
	if model.Status == "" {
		model.Status = statusActive
	}
	if model.BackgroundColor == "" {
		model.BackgroundColor = defaultBackgroundColor
	}

	res := s.ORM.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "identifier"}}, DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		if dup := uniqueViolation(res.Error); dup != nil {
			return 0, false, dup
		}
		return 0, false, fmt.Errorf("create user %q: %w", acct.Identifier, res.Error)
	}
	return model.ID, res.RowsAffected > 0, nil
}

func (s *Store) UpdateUser(ctx context.Context, userID int64, changes UserChanges) (Account, error) {
	cols := changes.columns()
	if len(cols) > 0 {
		if err := s.updateUser(ctx, userID, cols); err != nil {
			if dup := uniqueViolation(err); dup != nil {
				return Account{}, dup
			}
			return Account{}, err
		}
	}
	return s.FindByID(ctx, userID)
}

func (s *Store) EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var n int64
	err := s.ORM.WithContext(ctx).Model(&userModel{}).
		Where("lower(email) = ? AND id <> ?", strings.ToLower(strings.TrimSpace(email)), exceptID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]ManagedUser, error) {
	const q = `
SELECT u.id, u.identifier, u.email, u.name, u.role, u.department, u.directorate,
       u.position, u.status, u.manager_id, m.name AS manager_name,
       (SELECT count(*) FROM users s WHERE s.manager_id = u.id) AS subordinate_count
FROM users u
LEFT JOIN users m ON m.id = u.manager_id
ORDER BY u.name ASC, u.id ASC`

	out := []ManagedUser{}
	if err := db.Select(ctx, s.DB, &out, q); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}
