package model

import (
	"time"

	"gorm.io/gorm"
)

// Theme is a storefront theme available for install.
type Theme struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Tier      string    `json:"tier" gorm:"type:varchar(20);default:'free'"`
	Premium   bool      `json:"premium" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID when none is set.
func (t *Theme) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = newID()
	}
	return nil
}

// StoreTheme records a theme installed on a store.
type StoreTheme struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoreID   string    `json:"store_id" gorm:"size:36;index;not null"`
	ThemeID   string    `json:"theme_id" gorm:"size:36;index;not null"`
	Active    bool      `json:"active" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
