package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/middleware"
	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/logger"
	"github.com/pintubaloda/Sitesellr-sub000/prometheus"
)

// Signup registers a merchant account and its first user, then issues a token
// pair so onboarding can continue without a second login round-trip.
func Signup(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		MerchantName string `json:"merchant_name"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		Password     string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" || req.MerchantName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "merchant_name, email and password are required"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	user := model.User{Email: req.Email, Password: string(hash), Name: req.Name, Active: true}
	merchant := model.Merchant{Name: req.MerchantName, Email: req.Email, Status: model.MerchantTrial}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		merchant.OwnerUserID = user.ID
		return tx.Create(&merchant).Error
	})
	if err != nil {
		log.Warn("signup failed", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
	}

	pair, err := tokens.Issue(c.Request().Context(), user.ID, token.Metadata{
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		log.Error("failed to issue tokens", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.TokenIssuedCounter.Inc()

	log.Info("merchant signed up", zap.String("merchant_id", merchant.ID), zap.String("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"merchant_id":        merchant.ID,
		"user_id":            user.ID,
		"access_token":       pair.AccessToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_token":      pair.RefreshToken,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"token_type":         "Bearer",
	})
}

// Login verifies credentials and issues an opaque access/refresh token pair.
// The raw tokens appear only in this response.
func Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := db.Where("email = ? AND active = ?", req.Email, true).First(&user).Error; err != nil {
		log.Warn("login failed: user not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("login failed: password mismatch", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := tokens.Issue(c.Request().Context(), user.ID, token.Metadata{
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		log.Error("failed to issue tokens", zap.Error(err))
		prometheus.RecordAuthError("token_issue_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.TokenIssuedCounter.Inc()

	log.Info("user logged in", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":       pair.AccessToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_token":      pair.RefreshToken,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"token_type":         "Bearer",
	})
}

// Refresh rotates a refresh token, revoking the presented token and linking
// the new one to it.
func Refresh(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token is required"})
	}

	pair, err := tokens.Rotate(c.Request().Context(), req.RefreshToken, token.Metadata{
		ClientIP:  c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err == token.ErrInvalidRefreshToken {
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}
	if err != nil {
		log.Error("failed to rotate refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	prometheus.TokenIssuedCounter.Inc()
	prometheus.RecordTokenRevoked("refresh_token", "rotation")

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":       pair.AccessToken,
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_token":      pair.RefreshToken,
		"refresh_expires_at": pair.RefreshExpiresAt,
		"token_type":         "Bearer",
	})
}

// Logout revokes the presented access token and the refresh token's family.
func Logout(c echo.Context) error {
	log := logger.FromContext(c)
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	// Body is optional; an access-token-only logout still revokes the
	// access token.
	_ = c.Bind(&req)

	if raw := middleware.BearerToken(c); raw != "" {
		if err := tokens.RevokeAccess(ctx, raw); err != nil {
			log.Error("failed to revoke access token", zap.Error(err))
		} else {
			prometheus.RecordTokenRevoked("access_token", "logout")
		}
	}

	if req.RefreshToken != "" {
		rt, err := tokens.FindRefresh(ctx, req.RefreshToken)
		if err != nil {
			log.Error("failed to look up refresh token", zap.Error(err))
		} else if rt != nil {
			n, err := tokens.RevokeRefreshFamily(ctx, rt.ID)
			if err != nil {
				log.Error("failed to revoke refresh family", zap.Error(err))
			} else if n > 0 {
				prometheus.RecordTokenRevoked("refresh_token", "logout")
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
}

// RevokeTokenFamily revokes a refresh token and its descendants by ID, used
// to contain suspected token replay.
func RevokeTokenFamily(c echo.Context) error {
	log := logger.FromContext(c)

	refreshTokenID := c.Param("id")
	if refreshTokenID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token id is required"})
	}

	n, err := tokens.RevokeRefreshFamily(c.Request().Context(), refreshTokenID)
	if err != nil {
		log.Error("failed to revoke refresh family", zap.String("token_id", refreshTokenID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revocation failed"})
	}
	if n > 0 {
		prometheus.RecordTokenRevoked("refresh_token", "family_revoke")
	}
	writeAudit(c, "token.family_revoked", refreshTokenID)

	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}
