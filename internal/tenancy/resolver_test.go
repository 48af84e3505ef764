package tenancy_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/permission"
	"github.com/pintubaloda/Sitesellr-sub000/internal/tenancy"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

type fixture struct {
	db       *gorm.DB
	resolver *tenancy.Resolver
	tokens   *token.Service

	merchant model.Merchant
	storeA   model.Store
	storeB   model.Store
	user     model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	f := &fixture{
		db:       db,
		resolver: tenancy.NewResolver(db, "platform.example", nil),
		tokens:   token.NewService(db, 0, 0),
	}

	f.merchant = model.Merchant{Name: "Acme", Email: "owner@acme.test", Status: model.MerchantActive}
	require.NoError(t, db.Create(&f.merchant).Error)

	f.storeA = model.Store{MerchantID: f.merchant.ID, Name: "Acme Main", Subdomain: "acme", Active: true}
	require.NoError(t, db.Create(&f.storeA).Error)

	f.storeB = model.Store{
		MerchantID:    f.merchant.ID,
		Name:          "Acme Custom",
		Subdomain:     "acme-second",
		PrimaryDomain: "shop.acme-custom.com",
		Active:        true,
	}
	require.NoError(t, db.Create(&f.storeB).Error)

	f.user = model.User{Email: "staff@acme.test", Active: true}
	require.NoError(t, db.Create(&f.user).Error)

	return f
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	pair, err := f.tokens.Issue(context.Background(), f.user.ID, token.Metadata{})
	require.NoError(t, err)
	return pair.AccessToken
}

func TestResolveStoreBySubdomain(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{Host: "acme.platform.example"})
	require.NotNil(t, tc.Store)
	assert.Equal(t, f.storeA.ID, tc.Store.ID)
	require.NotNil(t, tc.Merchant)
	assert.Equal(t, f.merchant.ID, tc.Merchant.ID)
	assert.False(t, tc.IsAuthenticated())
}

func TestResolveStoreByPrimaryDomain(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{Host: "shop.acme-custom.com"})
	require.NotNil(t, tc.Store)
	assert.Equal(t, f.storeB.ID, tc.Store.ID)
}

func TestResolveUnknownHostIsPlatformLevel(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{Host: "nowhere.example.net"})
	assert.Nil(t, tc.Store)
	assert.Nil(t, tc.Merchant)
	assert.False(t, tc.IsAuthenticated())
}

func TestExplicitStoreIDWinsOverHost(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:         "acme.platform.example",
		StoreIDParam: f.storeB.ID,
	})
	require.NotNil(t, tc.Store)
	assert.Equal(t, f.storeB.ID, tc.Store.ID)
}

func TestMalformedStoreIDResolvesToNoStore(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{StoreIDParam: "not-a-store"})
	assert.Nil(t, tc.Store)
}

func TestTenantIsolationWithExplicitStoreID(t *testing.T) {
	f := newFixture(t)

	// User holds roles on both stores.
	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeA.ID, UserID: f.user.ID, Role: model.StoreRoleOwner,
	}).Error)
	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeB.ID, UserID: f.user.ID, Role: model.StoreRoleAdmin,
	}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		StoreIDParam: f.storeA.ID,
		BearerToken:  f.login(t),
	})
	require.NotNil(t, tc.Store)
	assert.True(t, tc.StoreIs(f.storeA.ID))
	assert.False(t, tc.StoreIs(f.storeB.ID))
}

func TestInvalidBearerTokenYieldsUnauthenticated(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:        "acme.platform.example",
		BearerToken: "definitely-not-a-token",
	})
	assert.False(t, tc.IsAuthenticated())
	// The store still resolves; identity failure is independent.
	require.NotNil(t, tc.Store)
}

func TestExpiredTokenYieldsUnauthenticated(t *testing.T) {
	f := newFixture(t)
	svc := token.NewService(f.db, time.Millisecond, 0)

	pair, err := svc.Issue(context.Background(), f.user.ID, token.Metadata{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{BearerToken: pair.AccessToken})
	assert.False(t, tc.IsAuthenticated())
}

func TestRolePermissionsUnionExplicitGrants(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeA.ID, UserID: f.user.ID, Role: model.StoreRoleStaff,
	}).Error)
	require.NoError(t, f.db.Create(&model.StoreUserPermission{
		StoreID: f.storeA.ID, UserID: f.user.ID, Permission: permission.ProductsWrite,
	}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:        "acme.platform.example",
		BearerToken: f.login(t),
	})
	require.NotNil(t, tc.Role)
	assert.Equal(t, model.StoreRoleStaff, *tc.Role)
	// Template permission.
	assert.True(t, tc.HasStorePermission(permission.OrdersRead))
	// Explicit grant on top of the template.
	assert.True(t, tc.HasStorePermission(permission.ProductsWrite))
	// Not granted anywhere.
	assert.False(t, tc.HasStorePermission(permission.StaffManage))
}

func TestPermissionMonotonicityOnGrantRemoval(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeA.ID, UserID: f.user.ID, Role: model.StoreRoleStaff,
	}).Error)
	// Explicit grant duplicating a template permission plus a distinct one.
	require.NoError(t, f.db.Create(&model.StoreUserPermission{
		StoreID: f.storeA.ID, UserID: f.user.ID, Permission: permission.OrdersRead,
	}).Error)
	require.NoError(t, f.db.Create(&model.StoreUserPermission{
		StoreID: f.storeA.ID, UserID: f.user.ID, Permission: permission.ProductsWrite,
	}).Error)

	access := f.login(t)
	req := tenancy.Request{Host: "acme.platform.example", BearerToken: access}

	// Remove both explicit grants.
	require.NoError(t, f.db.Where("store_id = ? AND user_id = ?", f.storeA.ID, f.user.ID).
		Delete(&model.StoreUserPermission{}).Error)

	tc := f.resolver.Resolve(context.Background(), req)
	// Template permission survives removal of the duplicate explicit grant.
	assert.True(t, tc.HasStorePermission(permission.OrdersRead))
	// Explicit-only permission is gone.
	assert.False(t, tc.HasStorePermission(permission.ProductsWrite))
}

func TestFallbackBindsFirstMembership(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeA.ID, UserID: f.user.ID, Role: model.StoreRoleAdmin,
	}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:        "api.some-unrelated.example",
		BearerToken: f.login(t),
	})
	require.NotNil(t, tc.Store)
	assert.Equal(t, f.storeA.ID, tc.Store.ID)
	assert.True(t, tc.IsOwnerOrAdmin())
}

func TestFallbackGrantsNothingBeyondExplicitResolution(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.StoreUserRole{
		StoreID: f.storeA.ID, UserID: f.user.ID, Role: model.StoreRoleStaff,
	}).Error)

	access := f.login(t)

	explicit := f.resolver.Resolve(context.Background(), tenancy.Request{
		StoreIDParam: f.storeA.ID,
		BearerToken:  access,
	})
	fallback := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:        "unknown.example.net",
		BearerToken: access,
	})

	require.NotNil(t, fallback.Store)
	assert.Equal(t, explicit.Store.ID, fallback.Store.ID)
	assert.Equal(t, *explicit.Role, *fallback.Role)
	assert.Equal(t, explicit.StorePermissions, fallback.StorePermissions)
}

func TestNoFallbackWithoutMembership(t *testing.T) {
	f := newFixture(t)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{
		Host:        "unknown.example.net",
		BearerToken: f.login(t),
	})
	assert.True(t, tc.IsAuthenticated())
	assert.Nil(t, tc.Store)
	assert.Nil(t, tc.Role)
}

func TestPlatformRolesResolveWithoutStore(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.PlatformUserRole{
		UserID: f.user.ID, Role: model.PlatformRoleStaff,
	}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{BearerToken: f.login(t)})
	assert.True(t, tc.IsPlatformStaff())
	assert.False(t, tc.IsPlatformOwner())
	assert.True(t, tc.HasPlatformPermission(permission.PlatformMerchantsRead))
	assert.False(t, tc.HasPlatformPermission(permission.PlatformMerchantsWrite))
}

func TestPlatformOwnerImpliesStaff(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.PlatformUserRole{
		UserID: f.user.ID, Role: model.PlatformRoleOwner,
	}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{BearerToken: f.login(t)})
	assert.True(t, tc.IsPlatformOwner())
	assert.True(t, tc.IsPlatformStaff())
	assert.True(t, tc.HasPlatformPermission(permission.PlatformMerchantsWrite))
}

func TestBothPlatformRolesUnion(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Create(&model.PlatformUserRole{UserID: f.user.ID, Role: model.PlatformRoleOwner}).Error)
	require.NoError(t, f.db.Create(&model.PlatformUserRole{UserID: f.user.ID, Role: model.PlatformRoleStaff}).Error)

	tc := f.resolver.Resolve(context.Background(), tenancy.Request{BearerToken: f.login(t)})
	assert.Len(t, tc.PlatformRoles, 2)
	assert.True(t, tc.HasPlatformPermission(permission.PlatformStaffManage))
}
