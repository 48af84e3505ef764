package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
)

// writeAudit appends an audit entry for a sensitive mutation. Audit failures
// are logged, never propagated: the mutation they describe has already been
// committed.
func writeAudit(c echo.Context, action, detail string) {
	tc := middleware.TenancyFromEcho(c)
	entry := model.AuditLog{
		ActorUserID: tc.UserID,
		Action:      action,
		Detail:      detail,
		ClientIP:    c.RealIP(),
	}
	if tc.Store != nil {
		entry.StoreID = tc.Store.ID
	}
	if tc.Merchant != nil {
		entry.MerchantID = tc.Merchant.ID
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.FromContext(c).Error("failed to write audit entry",
			zap.String("action", action),
			zap.Error(err))
	}
}
