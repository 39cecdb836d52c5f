// internal/infrastructure/database/postgres/attempt_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/domain/checkout"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutAttempt is one settled checkout attempt
type CheckoutAttempt struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Receipt   string          `gorm:"size:64;not null;uniqueIndex" json:"receipt"`
	SessionID string          `gorm:"size:64;not null" json:"session_id"`
	OrderID   string          `gorm:"size:64" json:"order_id,omitempty"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency  string          `gorm:"size:3" json:"currency,omitempty"`
	Outcome   string          `gorm:"size:20;not null" json:"outcome"`
	Reason    string          `gorm:"size:40" json:"reason,omitempty"`
	Detail    string          `gorm:"type:text" json:"detail,omitempty"`
	StartedAt time.Time       `gorm:"not null" json:"started_at"`
	SettledAt time.Time       `gorm:"not null" json:"settled_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// AttemptRepository stores checkout attempts in postgres
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a repository over db
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record upserts a settled attempt keyed by its receipt
func (r *AttemptRepository) Record(ctx context.Context, rec checkout.AttemptRecord) error {
	row := CheckoutAttempt{
		Receipt:   rec.Receipt,
		SessionID: rec.SessionID,
		OrderID:   rec.OrderID,
		Amount:    rec.Amount,
		Currency:  rec.Currency,
		Outcome:   rec.Outcome,
		Reason:    string(rec.Reason),
		Detail:    rec.Detail,
		StartedAt: rec.StartedAt,
		SettledAt: rec.SettledAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "receipt"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_id", "currency", "outcome", "reason", "detail", "settled_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to record checkout attempt %s: %w", rec.Receipt, err)
	}
	return nil
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ListBySession returns a session's attempts, newest first. limit defaults
// to 20 and is capped at 100.
func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]checkout.AttemptRecord, error) {
	var rows []CheckoutAttempt
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("settled_at DESC").
		Limit(historyLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list checkout attempts: %w", err)
	}

	attempts := make([]checkout.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.record())
	}
	return attempts, nil
}

func historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

func (a CheckoutAttempt) record() checkout.AttemptRecord {
	return checkout.AttemptRecord{
		SessionID: a.SessionID,
		Receipt:   a.Receipt,
		OrderID:   a.OrderID,
		Amount:    a.Amount,
		Currency:  a.Currency,
		Outcome:   a.Outcome,
		Reason:    checkout.Reason(a.Reason),
		Detail:    a.Detail,
		StartedAt: a.StartedAt,
		SettledAt: a.SettledAt,
	}
}
