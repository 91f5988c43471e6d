package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	ROLE_USER      = "user"
	ROLE_ADMIN     = "admin"
	STATUS_ACTIVE  = "active"
	STATUS_BLOCKED = "blocked"
)

// User is an application account backed by a Pi Network identity. There is no
// local password: authentication is the external token handshake, the app only
// stores the stable uid the platform hands back.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	PiUID         string         `gorm:"uniqueIndex;type:varchar(100);not null" json:"pi_uid" validate:"required,min=1,max=100"`
	Username      string         `gorm:"type:varchar(150);index" json:"username" validate:"required,min=1,max=150"`
	WalletAddress string         `gorm:"type:varchar(100);default:null" json:"wallet_address" validate:"max=100"`
	Role          string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status        string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active blocked"`
	LastLoginAt   *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(piUID, username, walletAddress string) (*User, error) {
	u := &User{
		PiUID:         piUID,
		Username:      username,
		WalletAddress: walletAddress,
		Role:          ROLE_USER,
		Status:        STATUS_ACTIVE,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// TouchLogin records the current time as the last successful authentication.
func (u *User) TouchLogin() {
	now := time.Now()
	u.LastLoginAt = &now
}
