// Package tenancy resolves the merchant, store, user, and permission context
// for each inbound request from the request host, tenant headers, and bearer
// token.
package tenancy

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/permission"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
)

// Request is the slice of an HTTP request the resolver reads: the host, the
// explicit store override (header or query), and the bearer token.
type Request struct {
	Host         string
	StoreIDParam string
	BearerToken  string
}

// Resolver builds a tenancy Context per request. Resolution never fails:
// unknown hosts, malformed store IDs, and invalid tokens all resolve to
// absence, and the policy layer decides the HTTP outcome.
type Resolver struct {
	db         *gorm.DB
	rootDomain string
	log        *zap.Logger
}

// NewResolver creates a tenancy resolver.
func NewResolver(db *gorm.DB, rootDomain string, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{db: db, rootDomain: strings.ToLower(rootDomain), log: log}
}

// Resolve produces the tenancy context for one request.
func (r *Resolver) Resolve(ctx context.Context, req Request) *Context {
	tc := NewContext()

	r.resolveStore(ctx, req, tc)
	r.resolveIdentity(ctx, req, tc)
	if tc.IsAuthenticated() {
		r.resolveStoreRole(ctx, tc)
		if tc.Store == nil {
			r.bindFirstMembership(ctx, tc)
		}
		r.resolvePlatformRoles(ctx, tc)
	}
	return tc
}

// resolveStore resolves the store by explicit ID, then subdomain under the
// configured root domain, then exact primary-domain match. No match is not an
// error; it is the platform-level case.
func (r *Resolver) resolveStore(ctx context.Context, req Request, tc *Context) {
	if id := strings.TrimSpace(req.StoreIDParam); id != "" {
		r.lookupStore(ctx, tc, "id = ?", id)
		return
	}
	if sub := SubdomainFromHost(req.Host, r.rootDomain); sub != "" {
		r.lookupStore(ctx, tc, "subdomain = ?", sub)
		return
	}
	if host := CanonicalHost(req.Host); host != "" {
		r.lookupStore(ctx, tc, "primary_domain = ?", host)
	}
}

func (r *Resolver) lookupStore(ctx context.Context, tc *Context, query string, arg string) {
	var store model.Store
	err := r.db.WithContext(ctx).Where(query, arg).Where("active = ?", true).First(&store).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			r.log.Warn("store lookup failed", zap.String("arg", arg), zap.Error(err))
		}
		return
	}
	tc.Store = &store
	var merchant model.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, "id = ?", store.MerchantID).Error; err == nil {
		tc.Merchant = &merchant
	}
}

// resolveIdentity hashes the presented bearer token and looks up a live
// access token. Missing, malformed, expired, or revoked tokens all leave the
// context unauthenticated.
func (r *Resolver) resolveIdentity(ctx context.Context, req Request, tc *Context) {
	raw := strings.TrimSpace(req.BearerToken)
	if raw == "" {
		return
	}
	var at model.AccessToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", token.Hash(raw), time.Now()).
		First(&at).Error
	if err != nil {
		return
	}
	tc.UserID = at.UserID
}

// resolveStoreRole loads the user's role on the resolved store and unions the
// role template with explicit permission grants.
func (r *Resolver) resolveStoreRole(ctx context.Context, tc *Context) {
	if tc.Store == nil {
		return
	}
	var sur model.StoreUserRole
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", tc.Store.ID, tc.UserID).
		First(&sur).Error
	if err != nil {
		return
	}
	role := sur.Role
	tc.Role = &role
	tc.StorePermissions = permission.ForStoreRole(role).Union(r.explicitGrants(ctx, tc.Store.ID, tc.UserID))
}

func (r *Resolver) explicitGrants(ctx context.Context, storeID, userID string) permission.Set {
	var rows []model.StoreUserPermission
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		Find(&rows).Error; err != nil {
		return permission.NewSet()
	}
	grants := permission.NewSet()
	for _, row := range rows {
		grants.Add(row.Permission)
	}
	return grants
}

// bindFirstMembership binds the context to the user's first store membership
// when no store resolved from the request. This gives a freshly logged-in
// store user a correct menu and permission context before any store header is
// sent. Controllers still re-check the store ID on every store-scoped
// parameter.
func (r *Resolver) bindFirstMembership(ctx context.Context, tc *Context) {
	var sur model.StoreUserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", tc.UserID).
		Order("created_at asc").
		First(&sur).Error
	if err != nil {
		return
	}
	var store model.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", sur.StoreID).Error; err != nil {
		return
	}
	tc.Store = &store
	var merchant model.Merchant
	if err := r.db.WithContext(ctx).First(&merchant, "id = ?", store.MerchantID).Error; err == nil {
		tc.Merchant = &merchant
	}
	role := sur.Role
	tc.Role = &role
	tc.StorePermissions = permission.ForStoreRole(role).Union(r.explicitGrants(ctx, store.ID, tc.UserID))
}

// resolvePlatformRoles loads platform roles independently of any store
// context and unions the platform permission templates.
func (r *Resolver) resolvePlatformRoles(ctx context.Context, tc *Context) {
	var rows []model.PlatformUserRole
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", tc.UserID).
		Find(&rows).Error; err != nil {
		return
	}
	for _, row := range rows {
		tc.PlatformRoles[row.Role] = struct{}{}
		tc.PlatformPermissions = tc.PlatformPermissions.Union(permission.ForPlatformRole(row.Role))
	}
}
