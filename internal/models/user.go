package models

import (
	"time"
)

// User is a Telegram account seen by the bot. ID is the Telegram user id.
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"size:255"`
	FirstName string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
