package api

import (
	"time"

	"riz/pkg/auth"
)

type userModel struct {
	ID               int64      `gorm:"column:id;primaryKey"`
	Identifier       string     `gorm:"column:identifier"`
	Email            string     `gorm:"column:email"`
	PasswordHash     string     `gorm:"column:password_hash"`
	Name             string     `gorm:"column:name"`
	Role             string     `gorm:"column:role"`
	Department       string     `gorm:"column:department"`
	Directorate      string     `gorm:"column:directorate"`
	Position         string     `gorm:"column:position"`
	ManagerID        *int64     `gorm:"column:manager_id"`
	BackgroundColor  string     `gorm:"column:background_color"`
	Status           string     `gorm:"column:status"`
	ResetToken       *string    `gorm:"column:reset_token"`
	ResetTokenExpiry *time.Time `gorm:"column:reset_token_expiry"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toAPI() User {
	color := m.BackgroundColor
	if color == "" {
		color = defaultBackgroundColor
	}
	return User{
		ID:              m.ID,
		Identifier:      m.Identifier,
		Email:           m.Email,
		Name:            m.Name,
		Role:            auth.Role(m.Role),
		Department:      m.Department,
		Directorate:     m.Directorate,
		Position:        m.Position,
		ManagerID:       m.ManagerID,
		BackgroundColor: color,
	}
}

func (m userModel) toAccount() Account {
	return Account{
		User:         m.toAPI(),
		PasswordHash: m.PasswordHash,
		Status:       m.Status,
		UpdatedAt:    m.UpdatedAt,
	}
}
