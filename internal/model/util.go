package model

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// newID returns a random UUID string for entity primary keys.
func newID() string {
	return uuid.NewString()
}

// newPrefixedID creates a secure random ID with a prefix, used for token rows
// so the ID itself identifies the row type in logs.
func newPrefixedID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// All lists every persisted model for migration.
func All() []interface{} {
	return []interface{}{
		&Merchant{},
		&Store{},
		&User{},
		&StoreUserRole{},
		&StoreUserPermission{},
		&PlatformUserRole{},
		&AccessToken{},
		&RefreshToken{},
		&Product{},
		&ProductVariant{},
		&ProductCategory{},
		&Plan{},
		&Subscription{},
		&Theme{},
		&StoreTheme{},
		&AuditLog{},
	}
}
