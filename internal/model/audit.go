package model

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog is an append-only record of a sensitive mutation.
type AuditLog struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ActorUserID string    `json:"actor_user_id,omitempty" gorm:"size:36;index"`
	MerchantID  string    `json:"merchant_id,omitempty" gorm:"size:36;index"`
	StoreID     string    `json:"store_id,omitempty" gorm:"size:36;index"`
	Action      string    `json:"action" gorm:"type:varchar(100);not null;index"`
	Detail      string    `json:"detail,omitempty" gorm:"type:text"`
	ClientIP    string    `json:"client_ip,omitempty" gorm:"type:varchar(45)"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeCreate assigns a random ID when none is set.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = newID()
	}
	return nil
}
