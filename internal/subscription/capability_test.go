package subscription_test

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
	"github.com/pintubaloda/Sitesellr-sub000/internal/subscription"
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

func seedStore(t *testing.T, db *gorm.DB) model.Store {
	t.Helper()
	merchant := model.Merchant{Name: "Acme", Email: fmt.Sprintf("%s@test.local", uuid.NewString()), Status: model.MerchantActive}
	require.NoError(t, db.Create(&merchant).Error)
	store := model.Store{MerchantID: merchant.ID, Name: "Acme Main", Subdomain: uuid.NewString()[:8], Active: true}
	require.NoError(t, db.Create(&store).Error)
	return store
}

func subscribe(t *testing.T, db *gorm.DB, merchantID string, plan model.Plan, status model.SubscriptionStatus, startedAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&plan).Error)
	require.NoError(t, db.Create(&model.Subscription{
		MerchantID: merchantID,
		PlanID:     plan.ID,
		Status:     status,
		StartedAt:  startedAt,
	}).Error)
}

func TestCapabilitiesWithoutSubscriptionAreConservative(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	caps, err := svc.CapabilitiesFor(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", caps.PlanName)
	// Never unlimited without an active subscription.
	assert.Positive(t, caps.MaxProducts)
	assert.Positive(t, caps.MaxVariantsPerProduct)
	assert.Positive(t, caps.MaxCategories)
	assert.False(t, caps.PremiumThemes)
	assert.Equal(t, subscription.TierFree, caps.ThemeTier)
}

func TestCapabilitiesUnknownStoreFallsBack(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)

	caps, err := svc.CapabilitiesFor(context.Background(), "no-such-store")
	require.NoError(t, err)
	assert.Equal(t, subscription.DefaultCapabilities(), caps)
}

func TestCapabilitiesFromPlan(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	subscribe(t, db, store.MerchantID, model.Plan{
		Name: "growth", MaxProducts: 500, MaxVariantsPerProduct: 20, MaxCategories: 50,
		PremiumThemes: true, ThemeTier: subscription.TierPremium, SMSEnabled: true,
	}, model.SubscriptionActive, time.Now())

	caps, err := svc.CapabilitiesFor(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth", caps.PlanName)
	assert.Equal(t, 500, caps.MaxProducts)
	assert.True(t, caps.PremiumThemes)
	assert.True(t, caps.SMSEnabled)
}

func TestCancelledSubscriptionIsIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	subscribe(t, db, store.MerchantID, model.Plan{Name: "growth", MaxProducts: 500},
		model.SubscriptionCancelled, time.Now())

	caps, err := svc.CapabilitiesFor(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", caps.PlanName)
}

func TestLatestNonCancelledSubscriptionWins(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	subscribe(t, db, store.MerchantID, model.Plan{Name: "starter", MaxProducts: 50},
		model.SubscriptionActive, time.Now().Add(-48*time.Hour))
	subscribe(t, db, store.MerchantID, model.Plan{Name: "growth", MaxProducts: 500},
		model.SubscriptionActive, time.Now().Add(-time.Hour))

	caps, err := svc.CapabilitiesFor(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth", caps.PlanName)
}

func TestCapabilityCacheAndInvalidate(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, time.Hour)
	store := seedStore(t, db)
	ctx := context.Background()

	caps, err := svc.CapabilitiesFor(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", caps.PlanName)

	// A plan change is invisible until the cache entry expires or is dropped.
	subscribe(t, db, store.MerchantID, model.Plan{Name: "growth", MaxProducts: 500},
		model.SubscriptionActive, time.Now())

	caps, err = svc.CapabilitiesFor(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "default", caps.PlanName)

	svc.Invalidate(store.ID)
	caps, err = svc.CapabilitiesFor(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth", caps.PlanName)
}

func TestCheckProductsCreateLimit(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)
	ctx := context.Background()

	subscribe(t, db, store.MerchantID, model.Plan{Name: "tiny", MaxProducts: 2, MaxVariantsPerProduct: 2},
		model.SubscriptionActive, time.Now())

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&model.Product{
			StoreID: store.ID, Name: fmt.Sprintf("p%d", i), IsActive: true,
		}).Error)
	}

	d, err := svc.CheckProductsCreate(ctx, store.ID, 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, subscription.ReasonProductLimit, d.Reason)
	assert.Equal(t, 2, d.Limit)
	assert.Equal(t, 2, d.Current)
}

func TestCheckProductsCreateVariantCeiling(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)
	ctx := context.Background()

	subscribe(t, db, store.MerchantID, model.Plan{Name: "tiny", MaxProducts: 10, MaxVariantsPerProduct: 2},
		model.SubscriptionActive, time.Now())

	d, err := svc.CheckProductsCreate(ctx, store.ID, 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, subscription.ReasonVariantLimit, d.Reason)

	d, err = svc.CheckProductsCreate(ctx, store.ID, 2)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reason)
}

func TestCheckProductsCreateUnboundedPlan(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	// Zero ceilings mean unbounded.
	subscribe(t, db, store.MerchantID, model.Plan{Name: "enterprise", MaxProducts: 0, MaxVariantsPerProduct: 0},
		model.SubscriptionActive, time.Now())

	d, err := svc.CheckProductsCreate(context.Background(), store.ID, 100)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckThemeApply(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)
	ctx := context.Background()

	subscribe(t, db, store.MerchantID, model.Plan{
		Name: "standard", ThemeTier: subscription.TierStandard, PremiumThemes: false,
	}, model.SubscriptionActive, time.Now())

	// At or below the plan tier is allowed.
	d, err := svc.CheckThemeApply(ctx, store.ID, false, subscription.TierFree)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = svc.CheckThemeApply(ctx, store.ID, false, subscription.TierStandard)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Above the plan tier is denied.
	d, err = svc.CheckThemeApply(ctx, store.ID, false, subscription.TierPremium)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, subscription.ReasonThemeTier, d.Reason)

	// The premium flag gates independently of tier.
	d, err = svc.CheckThemeApply(ctx, store.ID, true, subscription.TierFree)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, subscription.ReasonPremiumTheme, d.Reason)
}

func TestCheckThemeApplyUnknownTierDenied(t *testing.T) {
	db := newTestDB(t)
	svc := subscription.NewCapabilityService(db, 0)
	store := seedStore(t, db)

	subscribe(t, db, store.MerchantID, model.Plan{
		Name: "enterprise", ThemeTier: subscription.TierEnterprise, PremiumThemes: true,
	}, model.SubscriptionActive, time.Now())

	d, err := svc.CheckThemeApply(context.Background(), store.ID, false, "platinum")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, subscription.ReasonThemeTier, d.Reason)
}
