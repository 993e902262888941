package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

// UsersEmailIndex enforces case-insensitive email uniqueness.
const UsersEmailIndex = "idx_users_email_lower"

func init() {
	goose.AddMigrationContext(upUsersEmailUnique, downUsersEmailUnique)
}

func upUsersEmailUnique(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).
		Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + UsersEmailIndex + ` ON users (lower(email))`).
		Error
}

func downUsersEmailUnique(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}
	return gormDB.WithContext(ctx).Exec(`DROP INDEX IF EXISTS ` + UsersEmailIndex).Error
}
