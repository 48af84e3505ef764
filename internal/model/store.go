package model

import (
	"time"

	"gorm.io/gorm"
)

// Store is a merchant-owned storefront and the unit of tenant isolation.
type Store struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	MerchantID    string         `json:"merchant_id" gorm:"size:36;index;not null"`
	Name          string         `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain     string         `json:"subdomain" gorm:"type:varchar(63);uniqueIndex"`
	PrimaryDomain string         `json:"primary_domain,omitempty" gorm:"type:varchar(255);index"`
	Currency      string         `json:"currency" gorm:"type:varchar(3);default:'USD'"`
	Active        bool           `json:"active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Merchant Merchant `json:"merchant,omitempty" gorm:"foreignKey:MerchantID"`
}

// BeforeCreate assigns a random ID when none is set.
func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}
