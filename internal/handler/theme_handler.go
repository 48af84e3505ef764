package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// ListThemes lists the themes available for install.
func ListThemes(c echo.Context) error {
	var themes []model.Theme
	if err := db.Find(&themes).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list themes"})
	}
	return c.JSON(http.StatusOK, themes)
}

// ApplyTheme installs and activates a theme on the resolved store after the
// plan tier gate.
func ApplyTheme(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	var req struct {
		ThemeID string `json:"theme_id"`
	}
	if err := c.Bind(&req); err != nil || req.ThemeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "theme_id is required"})
	}

	var theme model.Theme
	if err := db.First(&theme, "id = ?", req.ThemeID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "theme not found"})
	}

	decision, err := capabilities.CheckThemeApply(c.Request().Context(), tc.Store.ID, theme.Premium, theme.Tier)
	if err != nil {
		log.Error("capability check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capability check failed"})
	}
	if !decision.Allowed {
		prometheus.RecordCapabilityDenial("theme_apply", decision.Reason)
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":  "theme not allowed on current plan",
			"reason": decision.Reason,
		})
	}

	// Deactivate the current theme, then activate the new install.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.StoreTheme{}).
			Where("store_id = ?", tc.Store.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		var install model.StoreTheme
		res := tx.Where("store_id = ? AND theme_id = ?", tc.Store.ID, theme.ID).First(&install)
		if res.Error == nil {
			return tx.Model(&install).Update("active", true).Error
		}
		return tx.Create(&model.StoreTheme{
			StoreID: tc.Store.ID,
			ThemeID: theme.ID,
			Active:  true,
		}).Error
	})
	if err != nil {
		log.Error("failed to apply theme", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "theme apply failed"})
	}

	writeAudit(c, "theme.applied", theme.ID)
	return c.JSON(http.StatusOK, echo.Map{"status": "applied", "theme_id": theme.ID})
}
