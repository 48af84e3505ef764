package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/tenancy"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// StoreRequest defines the structure for store creation requests
type StoreRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
	Currency  string `json:"currency"`
}

// CreateStore creates a store for the authenticated user's merchant, claims
// its subdomain, and provisions DNS. DNS failure is soft: the store is
// created either way.
func CreateStore(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	merchant := tc.Merchant
	if merchant == nil {
		// First store: no tenant resolved yet, so fall back to the merchant
		// account the user owns.
		var owned model.Merchant
		if err := db.Where("owner_user_id = ?", tc.UserID).First(&owned).Error; err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no merchant context"})
		}
		merchant = &owned
	}

	var req StoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	subdomain, err := tenancy.NormalizeSubdomain(req.Subdomain)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var count int64
	db.Model(&model.Store{}).Where("subdomain = ?", subdomain).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "subdomain already taken"})
	}

	store := model.Store{
		MerchantID: merchant.ID,
		Name:       req.Name,
		Subdomain:  subdomain,
		Currency:   req.Currency,
		Active:     true,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&store).Error; err != nil {
			return err
		}
		return tx.Create(&model.StoreUserRole{
			StoreID: store.ID,
			UserID:  tc.UserID,
			Role:    model.StoreRoleOwner,
		}).Error
	})
	if err != nil {
		log.Error("failed to create store", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store creation failed"})
	}

	// DNS provisioning is best-effort; a provider outage must not undo the
	// committed store.
	if err := dns.EnsureSubdomain(c.Request().Context(), subdomain); err != nil {
		log.Warn("subdomain dns provisioning failed",
			zap.String("subdomain", subdomain),
			zap.Error(err))
	}

	writeAudit(c, "store.created", store.ID)
	log.Info("store created",
		zap.String("store_id", store.ID),
		zap.String("subdomain", subdomain))
	return c.JSON(http.StatusCreated, store)
}

// UpdateStoreSettings updates mutable store settings. The path store ID must
// match the resolved tenant.
func UpdateStoreSettings(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	storeID := c.Param("id")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var req struct {
		Name          string `json:"name"`
		Currency      string `json:"currency"`
		PrimaryDomain string `json:"primary_domain"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Currency != "" {
		updates["currency"] = req.Currency
	}
	if req.PrimaryDomain != "" {
		updates["primary_domain"] = tenancy.CanonicalHost(req.PrimaryDomain)
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := db.Model(&model.Store{}).Where("id = ?", storeID).Updates(updates).Error; err != nil {
		log.Error("failed to update store settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	// Custom domain changes need DNS plus a certificate; both best-effort.
	if req.PrimaryDomain != "" {
		host := tenancy.CanonicalHost(req.PrimaryDomain)
		ctx := c.Request().Context()
		if err := dns.EnsureCustomDomain(ctx, host); err != nil {
			log.Warn("custom domain dns provisioning failed", zap.String("host", host), zap.Error(err))
		}
		if err := certs.Issue(ctx, host); err != nil {
			log.Warn("certificate issuance failed", zap.String("host", host), zap.Error(err))
		}
	}

	writeAudit(c, "store.settings_updated", storeID)
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// ListStoreMembers lists the role assignments of a store.
func ListStoreMembers(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)
	storeID := c.Param("id")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var roles []model.StoreUserRole
	if err := db.Where("store_id = ?", storeID).Find(&roles).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list members"})
	}
	return c.JSON(http.StatusOK, roles)
}

// UpsertStoreMemberRole assigns or updates a member's role on a store.
func UpsertStoreMemberRole(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	storeID := c.Param("id")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var req struct {
		UserID         string          `json:"user_id"`
		Role           model.StoreRole `json:"role"`
		CustomRoleName string          `json:"custom_role_name"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role are required"})
	}
	switch req.Role {
	case model.StoreRoleOwner, model.StoreRoleAdmin, model.StoreRoleStaff, model.StoreRoleCustom:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var existing model.StoreUserRole
	err := db.Where("store_id = ? AND user_id = ?", storeID, req.UserID).First(&existing).Error
	if err == nil {
		// Demoting the last owner would orphan the store.
		if existing.Role == model.StoreRoleOwner && req.Role != model.StoreRoleOwner {
			if n := countOwners(storeID); n <= 1 {
				return c.JSON(http.StatusConflict, echo.Map{"error": "store must retain at least one owner"})
			}
		}
		existing.Role = req.Role
		existing.CustomRoleName = req.CustomRoleName
		if err := db.Save(&existing).Error; err != nil {
			log.Error("failed to update member role", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
		}
		writeAudit(c, "store.member_role_updated", req.UserID+":"+string(req.Role))
		return c.JSON(http.StatusOK, existing)
	}

	assignment := model.StoreUserRole{
		StoreID:        storeID,
		UserID:         req.UserID,
		Role:           req.Role,
		CustomRoleName: req.CustomRoleName,
	}
	if err := db.Create(&assignment).Error; err != nil {
		log.Error("failed to create member role", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role assignment failed"})
	}
	writeAudit(c, "store.member_role_assigned", req.UserID+":"+string(req.Role))
	return c.JSON(http.StatusCreated, assignment)
}

// RemoveStoreMember deletes a member's role, refusing to remove the last
// owner.
func RemoveStoreMember(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)
	storeID := c.Param("id")
	userID := c.Param("userId")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var existing model.StoreUserRole
	if err := db.Where("store_id = ? AND user_id = ?", storeID, userID).First(&existing).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member not found"})
	}
	if existing.Role == model.StoreRoleOwner && countOwners(storeID) <= 1 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "store must retain at least one owner"})
	}

	if err := db.Delete(&existing).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "member removal failed"})
	}
	writeAudit(c, "store.member_removed", userID)
	return c.JSON(http.StatusOK, echo.Map{"status": "removed"})
}

// GrantStorePermission adds an explicit permission grant for a member,
// additive on top of the member's role template.
func GrantStorePermission(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)
	storeID := c.Param("id")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var req struct {
		UserID     string `json:"user_id"`
		Permission string `json:"permission"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" || req.Permission == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and permission are required"})
	}

	grant := model.StoreUserPermission{
		StoreID:    storeID,
		UserID:     req.UserID,
		Permission: req.Permission,
	}
	if err := db.Create(&grant).Error; err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission already granted"})
	}
	writeAudit(c, "store.permission_granted", req.UserID+":"+req.Permission)
	return c.JSON(http.StatusCreated, grant)
}

// RevokeStorePermission removes an explicit grant. Role template permissions
// are unaffected.
func RevokeStorePermission(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)
	storeID := c.Param("id")
	if !tc.StoreIs(storeID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "store mismatch"})
	}

	var req struct {
		UserID     string `json:"user_id"`
		Permission string `json:"permission"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" || req.Permission == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and permission are required"})
	}

	res := db.Where("store_id = ? AND user_id = ? AND permission = ?",
		storeID, req.UserID, req.Permission).
		Delete(&model.StoreUserPermission{})
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revocation failed"})
	}
	writeAudit(c, "store.permission_revoked", req.UserID+":"+req.Permission)
	return c.JSON(http.StatusOK, echo.Map{"revoked": res.RowsAffected})
}

func countOwners(storeID string) int64 {
	var n int64
	db.Model(&model.StoreUserRole{}).
		Where("store_id = ? AND role = ?", storeID, model.StoreRoleOwner).
		Count(&n)
	return n
}
