package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pintubaloda/Sitesellr-sub000/internal/tenancy"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

const tenancyContextKey = "tenancy"

// StoreIDHeader is the explicit tenant override header.
const StoreIDHeader = "X-Store-Id"

// ResolveTenancy resolves the tenancy context for every request and stores it
// in the Echo context. Resolution never rejects a request; the policy guards
// below decide the HTTP outcome.
func ResolveTenancy(resolver *tenancy.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := tenancy.Request{
				Host:         c.Request().Host,
				StoreIDParam: storeIDParam(c),
				BearerToken:  BearerToken(c),
			}
			tc := resolver.Resolve(c.Request().Context(), req)
			c.Set(tenancyContextKey, tc)

			switch {
			case tc.Store == nil:
				prometheus.RecordTenancyResolution("none")
			case req.StoreIDParam != "":
				prometheus.RecordTenancyResolution("explicit")
			default:
				prometheus.RecordTenancyResolution("host")
			}

			if tc.IsAuthenticated() {
				log := logger.FromContext(c).With(zap.String("user_id", tc.UserID))
				if tc.Store != nil {
					log = log.With(zap.String("store_id", tc.Store.ID))
				}
				c.Set("logger", log)
			}
			return next(c)
		}
	}
}

// TenancyFromEcho retrieves the resolved tenancy context. A missing context
// resolves to an empty one, never nil.
func TenancyFromEcho(c echo.Context) *tenancy.Context {
	tc, ok := c.Get(tenancyContextKey).(*tenancy.Context)
	if !ok {
		return tenancy.NewContext()
	}
	return tc
}

func storeIDParam(c echo.Context) string {
	if id := c.Request().Header.Get(StoreIDHeader); id != "" {
		return id
	}
	return c.QueryParam("storeId")
}

// BearerToken extracts the bearer credential from the Authorization header.
// The scheme matches case-insensitively; anything else yields "".
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuthenticated rejects unauthenticated requests.
func RequireAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tc := TenancyFromEcho(c)
		if !tc.IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return next(c)
	}
}

// RequireStore rejects requests without a resolved store.
func RequireStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tc := TenancyFromEcho(c)
		if tc.Store == nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return next(c)
	}
}

// RequireStorePermission rejects requests whose effective store permissions
// lack perm. Implies authentication and a resolved store.
func RequireStorePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tc := TenancyFromEcho(c)
			if !tc.IsAuthenticated() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			if tc.Store == nil {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
			}
			if !tc.HasStorePermission(perm) {
				logger.FromContext(c).Warn("store permission denied",
					zap.String("permission", perm),
					zap.String("store_id", tc.Store.ID))
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":      "insufficient permission",
					"permission": perm,
				})
			}
			return next(c)
		}
	}
}

// RequireOwnerOrAdmin rejects requests from users who are neither owner nor
// admin of the resolved store.
func RequireOwnerOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tc := TenancyFromEcho(c)
		if !tc.IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !tc.IsOwnerOrAdmin() {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "owner or admin role required"})
		}
		return next(c)
	}
}

// RequirePlatformStaff rejects users without a platform role. Platform owners
// pass.
func RequirePlatformStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tc := TenancyFromEcho(c)
		if !tc.IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !tc.IsPlatformStaff() {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "platform role required"})
		}
		return next(c)
	}
}

// RequirePlatformOwner rejects users without the platform owner role.
func RequirePlatformOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tc := TenancyFromEcho(c)
		if !tc.IsAuthenticated() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		if !tc.IsPlatformOwner() {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "platform owner role required"})
		}
		return next(c)
	}
}
