package model

import (
	"time"
)

// StoreRole is the closed set of roles a user may hold within one store.
type StoreRole string

const (
	StoreRoleOwner  StoreRole = "owner"
	StoreRoleAdmin  StoreRole = "admin"
	StoreRoleStaff  StoreRole = "staff"
	StoreRoleCustom StoreRole = "custom"
)

// PlatformRole is a role scoped across all tenants.
type PlatformRole string

const (
	PlatformRoleOwner PlatformRole = "owner"
	PlatformRoleStaff PlatformRole = "staff"
)

// StoreUserRole assigns a role to a user within a store.
// Unique per (store, user); at least one owner must remain per store.
type StoreUserRole struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	StoreID        string    `json:"store_id" gorm:"size:36;not null;uniqueIndex:idx_store_user"`
	UserID         string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_store_user"`
	Role           StoreRole `json:"role" gorm:"type:varchar(20);not null;default:'staff'"`
	CustomRoleName string    `json:"custom_role_name,omitempty" gorm:"type:varchar(50)"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Store Store `json:"store,omitempty" gorm:"foreignKey:StoreID"`
}

// StoreUserPermission is an explicit permission grant, additive on top of the
// role template and removable independently.
type StoreUserPermission struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	StoreID    string    `json:"store_id" gorm:"size:36;not null;uniqueIndex:idx_store_user_perm"`
	UserID     string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_store_user_perm"`
	Permission string    `json:"permission" gorm:"type:varchar(100);not null;uniqueIndex:idx_store_user_perm"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlatformUserRole assigns a platform-wide role to a user.
type PlatformUserRole struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	UserID    string       `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_platform_user_role"`
	Role      PlatformRole `json:"role" gorm:"type:varchar(20);not null;uniqueIndex:idx_platform_user_role"`
	CreatedAt time.Time    `json:"created_at"`
}
