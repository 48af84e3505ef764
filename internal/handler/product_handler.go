package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// ProductRequest defines the structure for product creation requests
type ProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	SKU         string           `json:"sku"`
	Price       float64          `json:"price"`
	CategoryID  string           `json:"category_id"`
	IsActive    bool             `json:"is_active"`
	Variants    []VariantRequest `json:"variants"`
}

// VariantRequest defines one variant of a product creation request
type VariantRequest struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ListProducts retrieves the products of the resolved store.
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	var products []model.Product
	query := db.Preload("Variants").Where("store_id = ?", tc.Store.ID)
	if isActive := c.QueryParam("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if err := query.Find(&products).Error; err != nil {
		log.Error("failed to list products", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, products)
}

// GetProduct retrieves a single product of the resolved store.
func GetProduct(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)

	var product model.Product
	err := db.Preload("Variants").
		Where("id = ? AND store_id = ?", c.Param("id"), tc.Store.ID).
		First(&product).Error
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct creates a product after the plan capability gate. The gate is
// advisory: it is checked before, not transactionally with, the insert.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	tc := middleware.TenancyFromEcho(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	decision, err := capabilities.CheckProductsCreate(c.Request().Context(), tc.Store.ID, len(req.Variants))
	if err != nil {
		log.Error("capability check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capability check failed"})
	}
	if !decision.Allowed {
		prometheus.RecordCapabilityDenial("products_create", decision.Reason)
		return c.JSON(http.StatusForbidden, echo.Map{
			"error":   "plan limit exceeded",
			"reason":  decision.Reason,
			"limit":   decision.Limit,
			"current": decision.Current,
		})
	}

	product := model.Product{
		StoreID:     tc.Store.ID,
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive,
	}
	for _, v := range req.Variants {
		product.Variants = append(product.Variants, model.ProductVariant{
			Name:     v.Name,
			SKU:      v.SKU,
			Price:    v.Price,
			Quantity: v.Quantity,
		})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := db.Create(&product).Error; err != nil {
		log.Error("failed to create product", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create product"})
	}

	log.Info("product created",
		zap.String("product_id", product.ID),
		zap.String("store_id", tc.Store.ID))
	return c.JSON(http.StatusCreated, product)
}

// UpdateVariantStock sets the owned quantity of a variant. Reserved holds are
// untouched; the reservation protocol owns reserved_quantity, so the new
// quantity must still cover every live hold.
func UpdateVariantStock(c echo.Context) error {
	tc := middleware.TenancyFromEcho(c)

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil || req.Quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be non-negative"})
	}

	storeScope := db.Model(&model.Product{}).Select("id").Where("store_id = ?", tc.Store.ID)
	res := db.Model(&model.ProductVariant{}).
		Where("id = ? AND product_id IN (?) AND reserved_quantity <= ?",
			c.Param("variantId"), storeScope, req.Quantity).
		Update("quantity", req.Quantity)
	if res.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stock update failed"})
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing variant from one whose holds exceed the
		// requested quantity.
		var variant model.ProductVariant
		err := db.Where("id = ? AND product_id IN (?)", c.Param("variantId"), storeScope).
			First(&variant).Error
		if err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "variant not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "quantity below reserved stock",
			"reason":   "reserved_exceeds_quantity",
			"reserved": variant.ReservedQuantity,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
}
