package models

import "time"

type User struct {
	ID        int64  `gorm:"primaryKey"`
	Username  string `gorm:"size:255;not null;uniqueIndex"`
	Email     string `gorm:"size:320;not null;uniqueIndex"`
	Password  string `gorm:"size:255;not null"`
	Role      string `gorm:"type:text;not null"`
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (User) TableName() string {
	return "users"
}
