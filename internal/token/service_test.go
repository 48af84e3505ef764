package token_test

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func newUser(t *testing.T, db *gorm.DB) model.User {
	t.Helper()
	u := model.User{Email: fmt.Sprintf("%s@test.local", uuid.NewString()), Active: true}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestIssuePersistsOnlyHashes(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)

	pair, err := svc.Issue(context.Background(), user.ID, token.Metadata{Scope: "store"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	var at model.AccessToken
	require.NoError(t, db.First(&at, "id = ?", pair.AccessTokenID).Error)
	var rt model.RefreshToken
	require.NoError(t, db.First(&rt, "id = ?", pair.RefreshTokenID).Error)

	// Stored hashes never equal the raw values and decode as hex SHA-256.
	assert.NotEqual(t, pair.AccessToken, at.TokenHash)
	assert.NotEqual(t, pair.RefreshToken, rt.TokenHash)
	assert.Equal(t, token.Hash(pair.AccessToken), at.TokenHash)
	assert.Equal(t, token.Hash(pair.RefreshToken), rt.TokenHash)
	raw, err := hex.DecodeString(at.TokenHash)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	// The raw token never appears in any persisted column.
	assert.False(t, strings.Contains(at.TokenHash, pair.AccessToken))
	assert.Equal(t, "store", at.Scope)

	assert.Nil(t, rt.ParentTokenID)
	assert.True(t, at.ExpiresAt.After(time.Now()))
	assert.True(t, rt.ExpiresAt.After(at.ExpiresAt))
}

func TestLookupAccess(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)

	pair, err := svc.Issue(context.Background(), user.ID, token.Metadata{})
	require.NoError(t, err)

	at, err := svc.LookupAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, user.ID, at.UserID)

	// Unknown and empty tokens miss without error.
	at, err = svc.LookupAccess(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Nil(t, at)
	at, err = svc.LookupAccess(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestLookupAccessExpired(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, time.Millisecond, 0)
	user := newUser(t, db)

	pair, err := svc.Issue(context.Background(), user.ID, token.Metadata{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	at, err := svc.LookupAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestRevokeAccess(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)

	pair, err := svc.Issue(context.Background(), user.ID, token.Metadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAccess(context.Background(), pair.AccessToken))

	at, err := svc.LookupAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, at)

	// Revoking again and revoking the empty token are no-ops.
	require.NoError(t, svc.RevokeAccess(context.Background(), pair.AccessToken))
	require.NoError(t, svc.RevokeAccess(context.Background(), ""))
}

func TestRotateRevokesPresentedToken(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)

	first, err := svc.Issue(context.Background(), user.ID, token.Metadata{Scope: "store"})
	require.NoError(t, err)

	second, err := svc.Rotate(context.Background(), first.RefreshToken, token.Metadata{})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// New refresh token links back to the one it replaced and inherits scope.
	var rt model.RefreshToken
	require.NoError(t, db.First(&rt, "id = ?", second.RefreshTokenID).Error)
	require.NotNil(t, rt.ParentTokenID)
	assert.Equal(t, first.RefreshTokenID, *rt.ParentTokenID)
	assert.Equal(t, "store", rt.Scope)

	// The presented token is spent; replaying it fails.
	_, err = svc.Rotate(context.Background(), first.RefreshToken, token.Metadata{})
	assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
}

func TestConcurrentRotationsSingleWinner(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user.ID, token.Metadata{})
	require.NoError(t, err)

	// Several clients replay the same refresh token at once; exactly one may
	// receive a new pair.
	var g errgroup.Group
	minted := make(chan *token.Pair, 8)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			p, err := svc.Rotate(ctx, pair.RefreshToken, token.Metadata{})
			if err == nil {
				minted <- p
				return nil
			}
			if errors.Is(err, token.ErrInvalidRefreshToken) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	close(minted)
	assert.Len(t, minted, 1)
}

func TestRotateUnknownToken(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)

	_, err := svc.Rotate(context.Background(), "never-issued", token.Metadata{})
	assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)
}

func TestRevokeRefreshFamily(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user.ID, token.Metadata{})
	require.NoError(t, err)
	second, err := svc.Rotate(ctx, first.RefreshToken, token.Metadata{})
	require.NoError(t, err)

	// Revoking the first token also revokes the token rotated from it.
	n, err := svc.RevokeRefreshFamily(ctx, first.RefreshTokenID)
	require.NoError(t, err)
	// The first is already revoked by rotation; only the child counts here.
	assert.Equal(t, int64(1), n)

	_, err = svc.Rotate(ctx, second.RefreshToken, token.Metadata{})
	assert.ErrorIs(t, err, token.ErrInvalidRefreshToken)

	// A second sweep finds nothing live.
	n, err = svc.RevokeRefreshFamily(ctx, first.RefreshTokenID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRevokeRefreshFamilyDepth(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)
	ctx := context.Background()

	// Three-generation chain with every row still live, built directly so the
	// sweep shape is observable without rotation revoking parents first.
	chain := func() (r0, r1, r2 model.RefreshToken) {
		r0 = model.RefreshToken{UserID: user.ID, TokenHash: token.Hash(uuid.NewString()), ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, db.Create(&r0).Error)
		r1 = model.RefreshToken{UserID: user.ID, TokenHash: token.Hash(uuid.NewString()), ParentTokenID: &r0.ID, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, db.Create(&r1).Error)
		r2 = model.RefreshToken{UserID: user.ID, TokenHash: token.Hash(uuid.NewString()), ParentTokenID: &r1.ID, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, db.Create(&r2).Error)
		return r0, r1, r2
	}

	revoked := func(id string) bool {
		var rt model.RefreshToken
		require.NoError(t, db.First(&rt, "id = ?", id).Error)
		return rt.RevokedAt != nil
	}

	// Revoking the root sweeps itself and its direct child, not grandchildren.
	r0, r1, r2 := chain()
	n, err := svc.RevokeRefreshFamily(ctx, r0.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, revoked(r0.ID))
	assert.True(t, revoked(r1.ID))
	assert.False(t, revoked(r2.ID))

	// Revoking a middle token never cascades upward.
	r0, r1, r2 = chain()
	n, err = svc.RevokeRefreshFamily(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.False(t, revoked(r0.ID))
	assert.True(t, revoked(r1.ID))
	assert.True(t, revoked(r2.ID))
}

func TestFindRefreshLocatesRevokedRows(t *testing.T) {
	db := newTestDB(t)
	svc := token.NewService(db, 0, 0)
	user := newUser(t, db)
	ctx := context.Background()

	pair, err := svc.Issue(ctx, user.ID, token.Metadata{})
	require.NoError(t, err)
	_, err = svc.RevokeRefreshFamily(ctx, pair.RefreshTokenID)
	require.NoError(t, err)

	// Logout needs the row even after revocation to anchor the family sweep.
	rt, err := svc.FindRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, pair.RefreshTokenID, rt.ID)
	assert.NotNil(t, rt.RevokedAt)

	rt, err = svc.FindRefresh(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestHashIsDeterministicAndOpaque(t *testing.T) {
	a := token.Hash("same-input")
	b := token.Hash("same-input")
	c := token.Hash("other-input")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
