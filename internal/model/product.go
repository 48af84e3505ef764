package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents product master data scoped to one store.
type Product struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	StoreID     string         `json:"store_id" gorm:"size:36;index;not null"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	SKU         string         `json:"sku" gorm:"type:varchar(100);index"`
	Price       float64        `json:"price" gorm:"not null"`
	CategoryID  string         `json:"category_id,omitempty" gorm:"size:36;index"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Variants []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
}

// BeforeCreate assigns a random ID when none is set.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}

// ProductVariant carries the stock pair the reservation protocol operates on.
// Available-to-sell is quantity - reserved_quantity; reserved_quantity must
// never exceed quantity, enforced by conditional updates only.
type ProductVariant struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	ProductID        string    `json:"product_id" gorm:"size:36;index;not null"`
	Name             string    `json:"name" gorm:"type:varchar(255)"`
	SKU              string    `json:"sku" gorm:"type:varchar(100);index"`
	Price            float64   `json:"price"`
	Quantity         int       `json:"quantity" gorm:"not null;default:0"`
	ReservedQuantity int       `json:"reserved_quantity" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate assigns a random ID when none is set.
func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = newID()
	}
	return nil
}

// Available returns the sellable quantity.
func (v *ProductVariant) Available() int {
	return v.Quantity - v.ReservedQuantity
}

// ProductCategory represents product categories scoped to one store.
type ProductCategory struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	StoreID   string         `json:"store_id" gorm:"size:36;index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns a random ID when none is set.
func (c *ProductCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}
