// Package permission maps store and platform roles to their permission
// templates. The catalog is the single source of truth for what a bare role
// grants; explicit grants in the tenancy resolver treat it as a floor, never
// a ceiling.
package permission

import (
	"strings"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
)

// Store permission strings.
const (
	OrdersRead         = "orders.read"
	OrdersWrite        = "orders.write"
	ProductsRead       = "products.read"
	ProductsWrite      = "products.write"
	CustomersRead      = "customers.read"
	CustomersWrite     = "customers.write"
	PagesRead          = "pages.read"
	PagesWrite         = "pages.write"
	ThemesRead         = "themes.read"
	ThemesWrite        = "themes.write"
	StoreSettingsRead  = "store.settings.read"
	StoreSettingsWrite = "store.settings.write"
	StaffManage        = "staff.manage"
	DomainsManage      = "domains.manage"
	ReportsRead        = "reports.read"
)

// Platform permission strings.
const (
	PlatformMerchantsRead  = "platform.merchants.read"
	PlatformMerchantsWrite = "platform.merchants.write"
	PlatformPlansRead      = "platform.plans.read"
	PlatformPlansWrite     = "platform.plans.write"
	PlatformDomainsManage  = "platform.domains.manage"
	PlatformThemesManage   = "platform.themes.manage"
	PlatformStaffManage    = "platform.staff.manage"
	PlatformAuditRead      = "platform.audit.read"
)

// Set is a case-insensitive set of permission strings.
type Set map[string]struct{}

// NewSet builds a Set from permission strings.
func NewSet(perms ...string) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[strings.ToLower(p)] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the permission, ignoring case.
func (s Set) Has(perm string) bool {
	_, ok := s[strings.ToLower(perm)]
	return ok
}

// Add inserts a permission into the set.
func (s Set) Add(perm string) {
	s[strings.ToLower(perm)] = struct{}{}
}

// Union returns a new set containing the members of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// ForStoreRole returns the permission template for a store role. Owner is a
// superset of Admin, which is a superset of Staff. Custom roles carry no
// template; they rely entirely on explicit grants.
func ForStoreRole(role model.StoreRole) Set {
	switch role {
	case model.StoreRoleOwner:
		return NewSet(
			OrdersRead, OrdersWrite,
			ProductsRead, ProductsWrite,
			CustomersRead, CustomersWrite,
			PagesRead, PagesWrite,
			ThemesRead, ThemesWrite,
			StoreSettingsRead, StoreSettingsWrite,
			StaffManage, DomainsManage, ReportsRead,
		)
	case model.StoreRoleAdmin:
		return NewSet(
			OrdersRead, OrdersWrite,
			ProductsRead, ProductsWrite,
			CustomersRead, CustomersWrite,
			PagesRead, PagesWrite,
			ThemesRead, ThemesWrite,
			StoreSettingsRead, StoreSettingsWrite,
			ReportsRead,
		)
	case model.StoreRoleStaff:
		return NewSet(
			OrdersRead, OrdersWrite,
			ProductsRead,
			CustomersRead,
			PagesRead,
			ThemesRead,
		)
	case model.StoreRoleCustom:
		return NewSet()
	default:
		return NewSet()
	}
}

// ForPlatformRole returns the permission template for a platform role.
// Owner is a superset of Staff.
func ForPlatformRole(role model.PlatformRole) Set {
	switch role {
	case model.PlatformRoleOwner:
		return NewSet(
			PlatformMerchantsRead, PlatformMerchantsWrite,
			PlatformPlansRead, PlatformPlansWrite,
			PlatformDomainsManage, PlatformThemesManage,
			PlatformStaffManage, PlatformAuditRead,
		)
	case model.PlatformRoleStaff:
		return NewSet(
			PlatformMerchantsRead,
			PlatformPlansRead,
			PlatformAuditRead,
		)
	default:
		return NewSet()
	}
}
