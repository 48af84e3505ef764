package main

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/dnsops"
	"github.com/pintubaloda/Sitesellr-sub000/internal/handler"
	"github.com/pintubaloda/Sitesellr-sub000/internal/inventory"
	mid "github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/permission"
	"github.com/pintubaloda/Sitesellr-sub000/internal/subscription"
	"github.com/pintubaloda/Sitesellr-sub000/internal/tenancy"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/config"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/database"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

func main() {
	// Load configuration
	appConfig, err := config.Load("sitesellr")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting platform backend", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(model.All()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Reservation ledger: in-process unless Redis is configured. The
	// in-process ledger only works for single-instance deployments.
	var ledger inventory.Ledger = inventory.NewMemoryLedger()
	if appConfig.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
		})
		ledger = inventory.NewRedisLedger(client, appConfig.Redis.LedgerTTL)
		log.Info("Using Redis reservation ledger", zap.String("addr", appConfig.Redis.Addr))
	} else {
		log.Warn("Using in-process reservation ledger; requires a single backend instance")
	}

	// DNS provider
	var dnsProvider dnsops.DNSProvider = dnsops.NoopProvider{}
	if appConfig.Cloudflare.APIToken != "" {
		dnsProvider = dnsops.NewCloudflareProvider(
			appConfig.Cloudflare.APIToken,
			appConfig.Cloudflare.ZoneID,
			appConfig.Cloudflare.Target,
			log,
		)
		log.Info("Cloudflare DNS provider configured")
	}

	// Core services
	tokenService := token.NewService(db, appConfig.Auth.AccessTokenTTL, appConfig.Auth.RefreshTokenTTL)
	capabilityService := subscription.NewCapabilityService(db, appConfig.Capability.CacheTTL)
	inventoryService := inventory.NewService(db, ledger, log)
	resolver := tenancy.NewResolver(db, appConfig.Platform.RootDomain, log)

	handler.Init(appConfig, handler.Deps{
		DB:           db,
		Tokens:       tokenService,
		Capabilities: capabilityService,
		Stock:        inventoryService,
		DNS:          dnsProvider,
	})

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomw.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)
	e.Use(mid.ResolveTenancy(resolver))

	// Metrics and health endpoints
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", handler.Health)

	// Auth routes
	e.POST("/api/auth/signup", handler.Signup)
	e.POST("/api/auth/login", handler.Login)
	e.POST("/api/auth/refresh", handler.Refresh)
	e.POST("/api/auth/logout", handler.Logout)

	// Store management routes
	storeAPI := e.Group("/api/stores", mid.RequireAuthenticated)
	storeAPI.POST("", handler.CreateStore)
	storeAPI.PUT("/:id/settings", handler.UpdateStoreSettings, mid.RequireStorePermission(permission.StoreSettingsWrite))
	storeAPI.GET("/:id/members", handler.ListStoreMembers, mid.RequireStorePermission(permission.StaffManage))
	storeAPI.PUT("/:id/members", handler.UpsertStoreMemberRole, mid.RequireStorePermission(permission.StaffManage))
	storeAPI.DELETE("/:id/members/:userId", handler.RemoveStoreMember, mid.RequireStorePermission(permission.StaffManage))
	storeAPI.POST("/:id/permissions", handler.GrantStorePermission, mid.RequireStorePermission(permission.StaffManage))
	storeAPI.DELETE("/:id/permissions", handler.RevokeStorePermission, mid.RequireStorePermission(permission.StaffManage))

	// Product routes
	productAPI := e.Group("/api/products", mid.RequireStore)
	productAPI.GET("", handler.ListProducts, mid.RequireStorePermission(permission.ProductsRead))
	productAPI.GET("/:id", handler.GetProduct, mid.RequireStorePermission(permission.ProductsRead))
	productAPI.POST("", handler.CreateProduct, mid.RequireStorePermission(permission.ProductsWrite))
	productAPI.PUT("/variants/:variantId/stock", handler.UpdateVariantStock, mid.RequireStorePermission(permission.ProductsWrite))

	// Theme routes
	themeAPI := e.Group("/api/themes", mid.RequireStore)
	themeAPI.GET("", handler.ListThemes)
	themeAPI.POST("/apply", handler.ApplyTheme, mid.RequireStorePermission(permission.ThemesWrite))

	// Public storefront checkout routes: tenant-scoped, no authentication
	checkoutAPI := e.Group("/api/checkout", mid.RequireStore)
	checkoutAPI.POST("", handler.Checkout)
	checkoutAPI.POST("/reservations", handler.ReserveCart)
	checkoutAPI.DELETE("/reservations/:id", handler.ReleaseReservation)

	// Platform administration routes
	platformAPI := e.Group("/api/platform")
	platformAPI.GET("/merchants", handler.ListMerchants, mid.RequirePlatformStaff)
	platformAPI.PUT("/merchants/:id/status", handler.UpdateMerchantStatus, mid.RequirePlatformOwner)
	platformAPI.POST("/roles", handler.GrantPlatformRole, mid.RequirePlatformOwner)
	platformAPI.DELETE("/roles", handler.RevokePlatformRole, mid.RequirePlatformOwner)
	platformAPI.GET("/audit", handler.ListAuditLog, mid.RequirePlatformStaff)
	platformAPI.POST("/tokens/:id/revoke-family", handler.RevokeTokenFamily, mid.RequirePlatformOwner)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
