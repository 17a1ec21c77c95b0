package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"`
	Role         string         `json:"role" gorm:"size:32;default:'owner'"`
	Name         string         `json:"name" gorm:"size:120"`
	Timezone     string         `json:"timezone" gorm:"size:64;default:'UTC'"`
	NotifyPrefs  map[string]any `json:"notify_prefs" gorm:"serializer:json"`
	APIKey       *string        `json:"api_key" gorm:"size:255;uniqueIndex"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Subscription struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Plan      string         `json:"plan" gorm:"size:64;default:'free'"`
	Limits    map[string]any `json:"limits" gorm:"serializer:json"`
	ExpiresAt *time.Time     `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}
