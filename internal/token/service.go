// Package token issues and revokes the opaque bearer tokens backing platform
// authentication. Raw tokens are high-entropy random values returned exactly
// once; only their SHA-256 hashes are persisted.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
)

const (
	// tokenBytes is the entropy of each raw token (32 bytes = 256 bits).
	tokenBytes = 32

	// DefaultAccessTTL keeps access tokens short-lived so a compromised
	// token self-expires quickly even without explicit revocation.
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL bounds the refresh token lifetime.
	DefaultRefreshTTL = 14 * 24 * time.Hour
)

// ErrInvalidRefreshToken is returned when a presented refresh token does not
// match a live row.
var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

// Pair carries the raw tokens of one issuance. The raw values exist only in
// this struct; they are never persisted or logged.
type Pair struct {
	AccessToken      string
	AccessTokenID    string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// Metadata describes the issuing request.
type Metadata struct {
	Scope     string
	ClientIP  string
	UserAgent string
}

// Service issues, rotates and revokes opaque bearer tokens.
type Service struct {
	db         *gorm.DB
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a token service. Zero TTLs fall back to the defaults.
func NewService(db *gorm.DB, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Service{db: db, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Hash computes the hex SHA-256 of a raw token. Tokens are already
// high-entropy random values, so an unsalted content hash is sufficient for
// both persistence and lookup. Total over any input: any byte string hashes,
// malformed tokens simply miss.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRawToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a fresh access/refresh token pair for a user and persists the
// hashed forms.
func (s *Service) Issue(ctx context.Context, userID string, meta Metadata) (*Pair, error) {
	return s.issue(ctx, userID, meta, nil)
}

func (s *Service) issue(ctx context.Context, userID string, meta Metadata, parentRefreshID *string) (*Pair, error) {
	rawAccess, err := newRawToken()
	if err != nil {
		return nil, err
	}
	rawRefresh, err := newRawToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	access := model.AccessToken{
		UserID:    userID,
		TokenHash: Hash(rawAccess),
		Scope:     meta.Scope,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		ExpiresAt: now.Add(s.accessTTL),
	}
	refresh := model.RefreshToken{
		UserID:        userID,
		TokenHash:     Hash(rawRefresh),
		ParentTokenID: parentRefreshID,
		Scope:         meta.Scope,
		ClientIP:      meta.ClientIP,
		UserAgent:     meta.UserAgent,
		ExpiresAt:     now.Add(s.refreshTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&access).Error; err != nil {
			return fmt.Errorf("persist access token: %w", err)
		}
		if err := tx.Create(&refresh).Error; err != nil {
			return fmt.Errorf("persist refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      rawAccess,
		AccessTokenID:    access.ID,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     rawRefresh,
		RefreshTokenID:   refresh.ID,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// LookupAccess resolves a raw access token to its live row. Unknown, revoked,
// and expired tokens all return (nil, nil); absence is not an error.
func (s *Service) LookupAccess(ctx context.Context, raw string) (*model.AccessToken, error) {
	if raw == "" {
		return nil, nil
	}
	var at model.AccessToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", Hash(raw), time.Now()).
		First(&at).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// Rotate exchanges a live refresh token for a fresh pair. The presented token
// is revoked and the new refresh token records it as parent, extending the
// revocation chain.
func (s *Service) Rotate(ctx context.Context, rawRefresh string, meta Metadata) (*Pair, error) {
	var rt model.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", Hash(rawRefresh), time.Now()).
		First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}

	// The conditional revoke doubles as the rotation lock: of two racing
	// rotations of the same token, only the one whose update matches the
	// still-live row may mint a new pair.
	res := s.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", rt.ID).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return nil, fmt.Errorf("revoke rotated token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidRefreshToken
	}

	if meta.Scope == "" {
		meta.Scope = rt.Scope
	}
	return s.issue(ctx, rt.UserID, meta, &rt.ID)
}

// RevokeRefreshFamily marks the given refresh token and its direct children
// (tokens whose parent is the given ID) revoked in one batch. Rotation links
// each generation to the previous one, so revoking a compromised token stops
// the token minted from it; deeper descendants are reached by revoking their
// own parents as they surface.
func (s *Service) RevokeRefreshFamily(ctx context.Context, refreshTokenID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("(id = ? OR parent_token_id = ?) AND revoked_at IS NULL", refreshTokenID, refreshTokenID).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("revoke refresh family: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RevokeAccess revokes a presented raw access token. Unknown tokens are a
// no-op.
func (s *Service) RevokeAccess(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&model.AccessToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", Hash(raw)).
		Update("revoked_at", time.Now()).Error
}

// FindRefresh resolves a raw refresh token to its row regardless of revocation
// state, used by logout to locate the family to revoke.
func (s *Service) FindRefresh(ctx context.Context, raw string) (*model.RefreshToken, error) {
	if raw == "" {
		return nil, nil
	}
	var rt model.RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", Hash(raw)).First(&rt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rt, nil
}
