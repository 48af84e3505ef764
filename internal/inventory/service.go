// Package inventory implements the stock reservation and checkout decrement
// protocols over the quantity/reserved_quantity pair. Every stock mutation is
// a single conditional update whose predicate and write execute as one atomic
// statement in the database; correctness under concurrent checkouts depends
// on never splitting them into a read followed by a write.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/model"
)

// ReasonStockUnavailable is the per-line failure reason reported when a
// conditional decrement matches no row.
const ReasonStockUnavailable = "stock_unavailable"

// Line is one requested (product, variant, quantity) entry of a cart.
type Line struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// StockError reports a line that failed its stock condition. It is never
// retried internally; the caller must re-decide.
type StockError struct {
	ProductID string
	VariantID string
	Reason    string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: product %s variant %s", e.Reason, e.ProductID, e.VariantID)
}

// Service applies the two stock-adjustment protocols.
type Service struct {
	db     *gorm.DB
	ledger Ledger
	log    *zap.Logger
}

// NewService creates an inventory service.
func NewService(db *gorm.DB, ledger Ledger, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, ledger: ledger, log: log}
}

// clampQuantity raises zero or negative requested quantities to 1 before use.
func clampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// findVariant resolves a variant for the store/product pair. Returns
// (nil, nil) when no such variant exists.
func (s *Service) findVariant(ctx context.Context, db *gorm.DB, storeID string, line Line) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("product_variants.id = ? AND products.id = ? AND products.store_id = ?",
			line.VariantID, line.ProductID, storeID).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find variant %s: %w", line.VariantID, err)
	}
	return &variant, nil
}

// DecrementForCheckout applies the immediate-decrement protocol. Each line is
// one conditional decrement of quantity guarded by available stock; a zero
// affected-row count fails the whole checkout with a StockError for that
// line. The lines run in one transaction so a failing line rolls back every
// decrement committed earlier in the same cart.
func (s *Service) DecrementForCheckout(ctx context.Context, storeID string, lines []Line) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			qty := clampQuantity(line.Quantity)

			variant, err := s.findVariant(ctx, tx, storeID, line)
			if err != nil {
				return err
			}
			if variant == nil {
				return &StockError{ProductID: line.ProductID, VariantID: line.VariantID, Reason: ReasonStockUnavailable}
			}

			res := tx.Model(&model.ProductVariant{}).
				Where("id = ? AND quantity - reserved_quantity >= ?", variant.ID, qty).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
			if res.Error != nil {
				return fmt.Errorf("decrement variant %s: %w", variant.ID, res.Error)
			}
			if res.RowsAffected == 0 {
				return &StockError{ProductID: line.ProductID, VariantID: line.VariantID, Reason: ReasonStockUnavailable}
			}
		}
		return nil
	})
}

// Reserve applies the hold-then-release protocol: conditional increments of
// reserved_quantity per line, all-or-nothing across the batch. When a line
// fails, every hold taken earlier in the same batch is compensated in the
// order it was performed, and the StockError names the offending line. On
// success the holds are recorded in the ledger under a fresh reservation ID.
func (s *Service) Reserve(ctx context.Context, storeID string, lines []Line) (string, error) {
	var taken []Hold

	for _, line := range lines {
		qty := clampQuantity(line.Quantity)

		variant, err := s.findVariant(ctx, s.db, storeID, line)
		if err != nil {
			s.compensate(ctx, taken)
			return "", err
		}
		if variant == nil {
			// Not reservable; skipped rather than failing the batch.
			continue
		}

		res := s.db.WithContext(ctx).Model(&model.ProductVariant{}).
			Where("id = ? AND quantity - reserved_quantity >= ?", variant.ID, qty).
			UpdateColumn("reserved_quantity", gorm.Expr("reserved_quantity + ?", qty))
		if res.Error != nil {
			s.compensate(ctx, taken)
			return "", fmt.Errorf("reserve variant %s: %w", variant.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			s.compensate(ctx, taken)
			return "", &StockError{ProductID: line.ProductID, VariantID: line.VariantID, Reason: ReasonStockUnavailable}
		}
		taken = append(taken, Hold{VariantID: variant.ID, Quantity: qty})
	}

	id := uuid.NewString()
	if err := s.ledger.Put(ctx, id, taken); err != nil {
		s.compensate(ctx, taken)
		return "", err
	}
	return id, nil
}

// Release undoes the holds recorded under a reservation ID. Releasing an
// unknown or already-released ID is a no-op success: a release may race a
// ledger eviction or a duplicate client retry.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	holds, ok, err := s.ledger.Take(ctx, reservationID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.compensate(ctx, holds)
	return nil
}

// compensate decrements reserved_quantity for each hold, clamped at zero.
// Failures are logged and skipped so one bad row cannot strand the rest of
// the batch.
func (s *Service) compensate(ctx context.Context, holds []Hold) {
	for _, h := range holds {
		err := s.db.WithContext(ctx).Model(&model.ProductVariant{}).
			Where("id = ?", h.VariantID).
			UpdateColumn("reserved_quantity",
				gorm.Expr("CASE WHEN reserved_quantity >= ? THEN reserved_quantity - ? ELSE 0 END", h.Quantity, h.Quantity)).
			Error
		if err != nil {
			s.log.Error("failed to release hold",
				zap.String("variant_id", h.VariantID),
				zap.Int("quantity", h.Quantity),
				zap.Error(err))
		}
	}
}
