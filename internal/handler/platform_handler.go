package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// ListMerchants lists merchants across all tenants, platform staff only.
func ListMerchants(c echo.Context) error {
	log := logger.FromContext(c)

	var merchants []model.Merchant
	query := db.Preload("Stores")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&merchants).Error; err != nil {
		log.Error("failed to list merchants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list merchants"})
	}
	return c.JSON(http.StatusOK, merchants)
}

// UpdateMerchantStatus moves a merchant through its lifecycle, platform owner
// only.
func UpdateMerchantStatus(c echo.Context) error {
	log := logger.FromContext(c)

	merchantID := c.Param("id")
	var req struct {
		Status model.MerchantStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	switch req.Status {
	case model.MerchantTrial, model.MerchantActive, model.MerchantSuspended, model.MerchantExpired:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := db.Model(&model.Merchant{}).Where("id = ?", merchantID).Update("status", req.Status)
	if res.Error != nil {
		log.Error("failed to update merchant status", zap.Error(res.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "merchant not found"})
	}

	writeAudit(c, "merchant.status_updated", merchantID+":"+string(req.Status))
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}

// GrantPlatformRole assigns a platform role to a user, platform owner only.
func GrantPlatformRole(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID string             `json:"user_id"`
		Role   model.PlatformRole `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role are required"})
	}
	switch req.Role {
	case model.PlatformRoleOwner, model.PlatformRoleStaff:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	grant := model.PlatformUserRole{UserID: req.UserID, Role: req.Role}
	if err := db.Create(&grant).Error; err != nil {
		log.Warn("platform role grant failed", zap.String("user_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "role already granted"})
	}

	writeAudit(c, "platform.role_granted", req.UserID+":"+string(req.Role))
	return c.JSON(http.StatusCreated, grant)
}

// RevokePlatformRole removes a platform role from a user, platform owner
// only.
func RevokePlatformRole(c echo.Context) error {
	var req struct {
		UserID string             `json:"user_id"`
		Role   model.PlatformRole `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role are required"})
	}

	res := db.Where("user_id = ? AND role = ?", req.UserID, req.Role).
		Delete(&model.PlatformUserRole{})
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revocation failed"})
	}

	writeAudit(c, "platform.role_revoked", req.UserID+":"+string(req.Role))
	return c.JSON(http.StatusOK, echo.Map{"revoked": res.RowsAffected})
}

// ListAuditLog reads the audit trail, platform staff only.
func ListAuditLog(c echo.Context) error {
	var entries []model.AuditLog
	query := db.Order("created_at desc").Limit(200)
	if action := c.QueryParam("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if err := query.Find(&entries).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read audit log"})
	}
	return c.JSON(http.StatusOK, entries)
}
