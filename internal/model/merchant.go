package model

import (
	"time"

	"gorm.io/gorm"
)

// MerchantStatus tracks the lifecycle of a merchant account.
type MerchantStatus string

const (
	MerchantTrial     MerchantStatus = "trial"
	MerchantActive    MerchantStatus = "active"
	MerchantSuspended MerchantStatus = "suspended"
	MerchantExpired   MerchantStatus = "expired"
)

// Merchant is the top-level account owning one or more stores.
type Merchant struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Email       string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	OwnerUserID string         `json:"owner_user_id,omitempty" gorm:"size:36;index"`
	Status      MerchantStatus `json:"status" gorm:"type:varchar(20);not null;default:'trial'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Stores []Store `json:"stores,omitempty" gorm:"foreignKey:MerchantID"`
}

// BeforeCreate assigns a random ID when none is set.
func (m *Merchant) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
