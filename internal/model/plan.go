package model

import (
	"time"

	"gorm.io/gorm"
)

// Plan is a billing plan carrying the quota ceilings and feature flags a
// merchant's subscription grants. A ceiling of 0 conventionally means
// "unbounded".
type Plan struct {
	ID                    string    `json:"id" gorm:"primaryKey;size:36"`
	Name                  string    `json:"name" gorm:"type:varchar(100);not null"`
	MaxProducts           int       `json:"max_products" gorm:"default:0"`
	MaxVariantsPerProduct int       `json:"max_variants_per_product" gorm:"default:0"`
	MaxCategories         int       `json:"max_categories" gorm:"default:0"`
	MaxPaymentGateways    int       `json:"max_payment_gateways" gorm:"default:1"`
	SMSEnabled            bool      `json:"sms_enabled" gorm:"default:false"`
	EmailEnabled          bool      `json:"email_enabled" gorm:"default:true"`
	WhatsAppEnabled       bool      `json:"whatsapp_enabled" gorm:"default:false"`
	ThemeTier             string    `json:"theme_tier" gorm:"type:varchar(20);default:'free'"`
	PremiumThemes         bool      `json:"premium_themes" gorm:"default:false"`
	MaxThemeInstalls      int       `json:"max_theme_installs" gorm:"default:1"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID when none is set.
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// SubscriptionStatus tracks the lifecycle of a merchant subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription links a merchant to its billing plan. Capability resolution
// reads the most recently started non-cancelled subscription.
type Subscription struct {
	ID         string             `json:"id" gorm:"primaryKey;size:36"`
	MerchantID string             `json:"merchant_id" gorm:"size:36;index;not null"`
	PlanID     string             `json:"plan_id" gorm:"size:36;index;not null"`
	Status     SubscriptionStatus `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	StartedAt  time.Time          `json:"started_at"`
	EndsAt     *time.Time         `json:"ends_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`

	// Relations
	Plan Plan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// BeforeCreate assigns a random ID when none is set.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}
