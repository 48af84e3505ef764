package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/inventory"
	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// CartRequest defines the structure for checkout and reservation requests
type CartRequest struct {
	Lines []inventory.Line `json:"lines"`
}

// Checkout applies the immediate-decrement protocol for a storefront
// purchase. A line failing its stock condition fails the whole checkout with
// a per-line stock_unavailable reason; the caller must re-decide.
func Checkout(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	var req CartRequest
	if err := c.Bind(&req); err != nil || len(req.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines are required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := stock.DecrementForCheckout(c.Request().Context(), tc.Store.ID, req.Lines)

	var stockErr *inventory.StockError
	if errors.As(err, &stockErr) {
		prometheus.CheckoutCounter.WithLabelValues("stock_unavailable").Inc()
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "stock unavailable",
			"reason":     stockErr.Reason,
			"product_id": stockErr.ProductID,
		})
	}
	if err != nil {
		log.Error("checkout failed", zap.Error(err))
		prometheus.CheckoutCounter.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed"})
	}

	prometheus.CheckoutCounter.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, echo.Map{"status": "completed"})
}

// ReserveCart places short-lived holds on every line of a cart,
// all-or-nothing across the batch, and returns the reservation handle.
func ReserveCart(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	var req CartRequest
	if err := c.Bind(&req); err != nil || len(req.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines are required"})
	}

	reservationID, err := stock.Reserve(c.Request().Context(), tc.Store.ID, req.Lines)

	var stockErr *inventory.StockError
	if errors.As(err, &stockErr) {
		prometheus.ReservationCounter.WithLabelValues("stock_unavailable").Inc()
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "stock unavailable",
			"reason":     stockErr.Reason,
			"product_id": stockErr.ProductID,
		})
	}
	if err != nil {
		log.Error("reservation failed", zap.Error(err))
		prometheus.ReservationCounter.WithLabelValues("error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
	}

	prometheus.ReservationCounter.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, echo.Map{"reservation_id": reservationID})
}

// ReleaseReservation undoes the holds of a reservation. Unknown IDs succeed:
// the release may race a duplicate retry or an expired ledger entry.
func ReleaseReservation(c echo.Context) error {
	log := logger.FromContext(c)

	reservationID := c.Param("id")
	if reservationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation id is required"})
	}

	if err := stock.Release(c.Request().Context(), reservationID); err != nil {
		log.Error("release failed", zap.String("reservation_id", reservationID), zap.Error(err))
		prometheus.ReservationCounter.WithLabelValues("release_error").Inc()
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release failed"})
	}

	prometheus.ReservationCounter.WithLabelValues("released").Inc()
	return c.JSON(http.StatusOK, echo.Map{"status": "released"})
}
