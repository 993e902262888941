package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type User struct {
	ID               int64      `gorm:"type:bigserial;primaryKey"`
	Identifier       string     `gorm:"type:text;uniqueIndex;not null"`
	Email            string     `gorm:"type:text;index;not null"`
	PasswordHash     string     `gorm:"type:text;not null"`
	Name             string     `gorm:"type:text;not null"`
	Role             string     `gorm:"type:text;not null;default:'user'"`
	Department       string     `gorm:"type:text;not null;default:'';index"`
	Directorate      string     `gorm:"type:text;not null;default:''"`
	Position         string     `gorm:"type:text;not null;default:''"`
	ManagerID        *int64     `gorm:"type:bigint;index"`
	BackgroundColor  string     `gorm:"type:text;not null;default:'#f9fafb'"`
	Status           string     `gorm:"type:text;not null;default:'active'"`
	ResetToken       *string    `gorm:"type:text;uniqueIndex"`
	ResetTokenExpiry *time.Time `gorm:"type:timestamptz"`
	CreatedAt        time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Manager          *User      `gorm:"foreignKey:ManagerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

type Activity struct {
	ID               int64          `gorm:"type:bigserial;primaryKey"`
	UserID           int64          `gorm:"type:bigint;not null;index:idx_activities_user_date"`
	Date             time.Time      `gorm:"type:date;not null;index:idx_activities_user_date"`
	Description      string         `gorm:"type:text;not null"`
	Status           string         `gorm:"type:text;not null;default:'pending'"`
	TimeSpentMinutes int            `gorm:"type:integer;not null;default:0"`
	RofCode          string         `gorm:"type:text"`
	BaseAct          string         `gorm:"type:text"`
	Attributes       datatypes.JSON `gorm:"type:jsonb;default:'[]'::jsonb"`
	CreatedAt        time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	User             User           `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func openTx(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	if err := gormDB.WithContext(ctx).AutoMigrate(
		&User{},
		&Activity{},
	); err != nil {
		return err
	}

	m := gormDB.WithContext(ctx).Migrator()
	if !m.HasConstraint(&User{}, "Manager") {
		if err := m.CreateConstraint(&User{}, "Manager"); err != nil {
			return err
		}
	}
	if !m.HasConstraint(&Activity{}, "User") {
		if err := m.CreateConstraint(&Activity{}, "User"); err != nil {
			return err
		}
	}

	checks := []string{
		`ALTER TABLE users ADD CONSTRAINT chk_users_not_own_manager CHECK (manager_id IS NULL OR manager_id <> id)`,
		`ALTER TABLE users ADD CONSTRAINT chk_users_reset_pair CHECK ((reset_token IS NULL) = (reset_token_expiry IS NULL))`,
	}
	for _, stmt := range checks {
		if err := gormDB.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&Activity{},
		&User{},
	)
}
