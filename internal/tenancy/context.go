package tenancy

import (
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/permission"
)

// Context carries everything resolved for one request: the tenant (merchant
// and store), the authenticated user, and the user's effective permissions.
// A context with no resolved store is valid; it is the platform-level case,
// never a store wildcard.
type Context struct {
	Merchant *model.Merchant
	Store    *model.Store

	UserID string
	Role   *model.StoreRole

	StorePermissions    permission.Set
	PlatformRoles       map[model.PlatformRole]struct{}
	PlatformPermissions permission.Set
}

// NewContext returns an empty context with allocated sets.
func NewContext() *Context {
	return &Context{
		StorePermissions:    permission.NewSet(),
		PlatformRoles:       make(map[model.PlatformRole]struct{}),
		PlatformPermissions: permission.NewSet(),
	}
}

// IsAuthenticated reports whether a user was resolved from the bearer token.
func (c *Context) IsAuthenticated() bool {
	return c.UserID != ""
}

// IsOwnerOrAdmin reports whether the resolved store role is owner or admin.
func (c *Context) IsOwnerOrAdmin() bool {
	return c.Role != nil && (*c.Role == model.StoreRoleOwner || *c.Role == model.StoreRoleAdmin)
}

// IsPlatformOwner reports whether the user holds the platform owner role.
func (c *Context) IsPlatformOwner() bool {
	_, ok := c.PlatformRoles[model.PlatformRoleOwner]
	return ok
}

// IsPlatformStaff reports whether the user holds the platform staff role.
// Platform owners are always platform staff.
func (c *Context) IsPlatformStaff() bool {
	if c.IsPlatformOwner() {
		return true
	}
	_, ok := c.PlatformRoles[model.PlatformRoleStaff]
	return ok
}

// HasStorePermission reports whether the effective store permission set
// contains perm.
func (c *Context) HasStorePermission(perm string) bool {
	return c.StorePermissions.Has(perm)
}

// HasPlatformPermission reports whether the platform permission set contains
// perm.
func (c *Context) HasPlatformPermission(perm string) bool {
	return c.PlatformPermissions.Has(perm)
}

// StoreIs reports whether a store resolved and its ID equals storeID. Every
// store-scoped action must call this with the requested store ID; the
// fallback membership binding is a convenience, not a security boundary.
func (c *Context) StoreIs(storeID string) bool {
	return c.Store != nil && c.Store.ID == storeID
}
