// Package subscription resolves the plan capabilities of a store and exposes
// the allow/deny checks gating quota-bound actions.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
)

// Capabilities is the derived set of ceilings and feature flags a store's
// plan grants. A numeric ceiling of 0 means unbounded.
type Capabilities struct {
	PlanName              string
	MaxProducts           int
	MaxVariantsPerProduct int
	MaxCategories         int
	MaxPaymentGateways    int
	SMSEnabled            bool
	EmailEnabled          bool
	WhatsAppEnabled       bool
	ThemeTier             string
	PremiumThemes         bool
	MaxThemeInstalls      int
}

// DefaultCapabilities is the deliberately conservative value used when a
// merchant has no active subscription. Non-zero limits, never unlimited, so a
// billing gap cannot become a free-tier bypass.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		PlanName:              "default",
		MaxProducts:           10,
		MaxVariantsPerProduct: 3,
		MaxCategories:         5,
		MaxPaymentGateways:    1,
		SMSEnabled:            false,
		EmailEnabled:          true,
		WhatsAppEnabled:       false,
		ThemeTier:             TierFree,
		PremiumThemes:         false,
		MaxThemeInstalls:      1,
	}
}

// Theme tiers under the fixed ordering free < standard < premium < enterprise.
const (
	TierFree       = "free"
	TierStandard   = "standard"
	TierPremium    = "premium"
	TierEnterprise = "enterprise"
)

var tierRank = map[string]int{
	TierFree:       0,
	TierStandard:   1,
	TierPremium:    2,
	TierEnterprise: 3,
}

// Denial reason codes.
const (
	ReasonProductLimit = "product_limit_reached"
	ReasonVariantLimit = "variant_limit_exceeded"
	ReasonPremiumTheme = "premium_theme_not_allowed"
	ReasonThemeTier    = "theme_tier_not_allowed"
)

// Decision is the structured outcome of a capability check, carrying enough
// detail for a caller to render an actionable message.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Current int    `json:"current,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string, limit, current int) Decision {
	return Decision{Allowed: false, Reason: reason, Limit: limit, Current: current}
}

const (
	// DefaultCacheTTL bounds capability staleness. A stale read up to this
	// long is accepted to avoid a subscription join on every check.
	DefaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 4096
)

// CapabilityService resolves store capabilities with a short-lived in-memory
// cache keyed by store ID.
type CapabilityService struct {
	db    *gorm.DB
	cache *lru.LRU[string, Capabilities]
}

// NewCapabilityService creates a capability service. A zero ttl falls back to
// DefaultCacheTTL.
func NewCapabilityService(db *gorm.DB, ttl time.Duration) *CapabilityService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CapabilityService{
		db:    db,
		cache: lru.NewLRU[string, Capabilities](defaultCacheSize, nil, ttl),
	}
}

// Invalidate drops the cached capabilities for a store, used after plan
// changes initiated through this process.
func (s *CapabilityService) Invalidate(storeID string) {
	s.cache.Remove(storeID)
}

// CapabilitiesFor resolves the effective capabilities of a store:
// store -> merchant -> most recently started non-cancelled subscription ->
// plan. Absent subscription yields DefaultCapabilities.
func (s *CapabilityService) CapabilitiesFor(ctx context.Context, storeID string) (Capabilities, error) {
	if caps, ok := s.cache.Get(storeID); ok {
		return caps, nil
	}

	var store model.Store
	if err := s.db.WithContext(ctx).First(&store, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultCapabilities(), nil
		}
		return Capabilities{}, fmt.Errorf("load store %s: %w", storeID, err)
	}

	var sub model.Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Where("merchant_id = ? AND status <> ?", store.MerchantID, model.SubscriptionCancelled).
		Order("started_at desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		caps := DefaultCapabilities()
		s.cache.Add(storeID, caps)
		return caps, nil
	}
	if err != nil {
		return Capabilities{}, fmt.Errorf("load subscription for merchant %s: %w", store.MerchantID, err)
	}

	caps := Capabilities{
		PlanName:              sub.Plan.Name,
		MaxProducts:           sub.Plan.MaxProducts,
		MaxVariantsPerProduct: sub.Plan.MaxVariantsPerProduct,
		MaxCategories:         sub.Plan.MaxCategories,
		MaxPaymentGateways:    sub.Plan.MaxPaymentGateways,
		SMSEnabled:            sub.Plan.SMSEnabled,
		EmailEnabled:          sub.Plan.EmailEnabled,
		WhatsAppEnabled:       sub.Plan.WhatsAppEnabled,
		ThemeTier:             sub.Plan.ThemeTier,
		PremiumThemes:         sub.Plan.PremiumThemes,
		MaxThemeInstalls:      sub.Plan.MaxThemeInstalls,
	}
	s.cache.Add(storeID, caps)
	return caps, nil
}

// CheckProductsCreate decides whether the store may create one more product
// with the proposed variant count. The check is advisory; it is not
// transactional with the insert that follows it.
func (s *CapabilityService) CheckProductsCreate(ctx context.Context, storeID string, proposedVariants int) (Decision, error) {
	caps, err := s.CapabilitiesFor(ctx, storeID)
	if err != nil {
		return Decision{}, err
	}

	if caps.MaxProducts > 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Product{}).
			Where("store_id = ?", storeID).
			Count(&count).Error; err != nil {
			return Decision{}, fmt.Errorf("count products for store %s: %w", storeID, err)
		}
		if int(count) >= caps.MaxProducts {
			return deny(ReasonProductLimit, caps.MaxProducts, int(count)), nil
		}
	}

	if caps.MaxVariantsPerProduct > 0 && proposedVariants > caps.MaxVariantsPerProduct {
		return deny(ReasonVariantLimit, caps.MaxVariantsPerProduct, proposedVariants), nil
	}

	return allow(), nil
}

// CheckThemeApply decides whether the store may apply a theme of the given
// tier.
func (s *CapabilityService) CheckThemeApply(ctx context.Context, storeID string, premium bool, themeTier string) (Decision, error) {
	caps, err := s.CapabilitiesFor(ctx, storeID)
	if err != nil {
		return Decision{}, err
	}

	if premium && !caps.PremiumThemes {
		return deny(ReasonPremiumTheme, 0, 0), nil
	}

	themeRank, ok := tierRank[themeTier]
	if !ok {
		// Unknown tiers outrank everything.
		return deny(ReasonThemeTier, tierRank[caps.ThemeTier], 0), nil
	}
	if themeRank > tierRank[caps.ThemeTier] {
		return deny(ReasonThemeTier, tierRank[caps.ThemeTier], themeRank), nil
	}

	return allow(), nil
}
