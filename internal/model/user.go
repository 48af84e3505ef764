package model

import (
	"time"

	"gorm.io/gorm"
)

// User is a platform or store user account.
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	Name      string         `json:"name" gorm:"type:varchar(100)"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a random ID when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}
