package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is a thin local mirror of the identity issued by the upstream auth
// service. Identity creation and login live outside this service; we keep
// the row for foreign keys and the creator's payout wallet address.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Username      string         `gorm:"type:varchar(100);uniqueIndex" json:"username"`
	Role          string         `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status        string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	WalletAddress string         `gorm:"type:varchar(191)" json:"wallet_address,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// GetUserByID lädt einen Benutzer anhand seiner ID
func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
