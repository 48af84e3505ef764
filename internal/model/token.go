package model

import (
	"time"

	"gorm.io/gorm"
)

// AccessToken is the persisted form of a short-lived opaque bearer token.
// Only the SHA-256 hash of the raw token is ever stored.
type AccessToken struct {
	ID        string     `json:"id" gorm:"primaryKey;size:40"`
	UserID    string     `json:"user_id" gorm:"size:36;index;not null"`
	TokenHash string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Scope     string     `json:"scope,omitempty" gorm:"type:varchar(255)"`
	ClientIP  string     `json:"client_ip,omitempty" gorm:"type:varchar(45)"`
	UserAgent string     `json:"user_agent,omitempty" gorm:"type:varchar(255)"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// BeforeCreate assigns a prefixed random ID when none is set.
func (t *AccessToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = newPrefixedID("tok_")
	}
	return nil
}

// IsLive reports whether the token is neither revoked nor expired.
func (t *AccessToken) IsLive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// RefreshToken is the persisted form of a long-lived opaque refresh token.
// ParentTokenID links a rotated token to the token it replaced, forming the
// revocation chain used to contain token replay.
type RefreshToken struct {
	ID            string     `json:"id" gorm:"primaryKey;size:40"`
	UserID        string     `json:"user_id" gorm:"size:36;index;not null"`
	TokenHash     string     `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	ParentTokenID *string    `json:"parent_token_id,omitempty" gorm:"size:40;index"`
	Scope         string     `json:"scope,omitempty" gorm:"type:varchar(255)"`
	ClientIP      string     `json:"client_ip,omitempty" gorm:"type:varchar(45)"`
	UserAgent     string     `json:"user_agent,omitempty" gorm:"type:varchar(255)"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// BeforeCreate assigns a prefixed random ID when none is set.
func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = newPrefixedID("ref_")
	}
	return nil
}

// IsLive reports whether the token is neither revoked nor expired.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
