package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tonscope/tokenrisk/pkg/models"
)

// Store is the durable keyed storage for token risk records. One row exists
// per token_id; Upsert inserts a new row or overwrites the mutable fields of
// the existing one in a single conflict-clause statement, so a reader never
// observes a half-written record and racing writers never trip the unique
// index.
type Store struct {
	db *gorm.DB
}

// NewStore creates a risk record store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the record for token_id, or nil when none exists
func (s *Store) Get(ctx context.Context, tokenID string) (*models.TokenRisk, error) {
	var rec models.TokenRisk
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token risk: %w", err)
	}
	return &rec, nil
}

// Upsert inserts rec or overwrites the existing row for rec.TokenID,
// bumping updated_at. On an existing row the stored id is kept and written
// back into rec.
func (s *Store) Upsert(ctx context.Context, rec *models.TokenRisk) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertTx(tx, rec)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert token risk: %w", err)
	}
	return nil
}

// UpsertBatch commits all records in a single transaction; either every
// record applies or none does.
func (s *Store) UpsertBatch(ctx context.Context, recs []*models.TokenRisk) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := upsertTx(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert token risk batch: %w", err)
	}
	return nil
}

// ListTokenIDs returns every tracked token_id, unordered
func (s *Store) ListTokenIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.TokenRisk{}).Pluck("token_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list token ids: %w", err)
	}
	return ids, nil
}

func upsertTx(tx *gorm.DB, rec *models.TokenRisk) error {
	rec.UpdatedAt = time.Now().UTC()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	// Single-statement upsert on the token_id unique index: two writers
	// racing on a first-time insert resolve to last-writer-wins instead of
	// the second failing on the constraint.
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol", "volatility_30d", "liquidity_score", "sentiment_score",
			"contract_risk_score", "overall_risk_score", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return err
	}

	// The conflict path keeps the stored row's id; write it back into rec
	var stored models.TokenRisk
	if err := tx.Select("id").Where("token_id = ?", rec.TokenID).First(&stored).Error; err != nil {
		return err
	}
	rec.ID = stored.ID
	return nil
}
