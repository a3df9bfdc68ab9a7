package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/pkg/db"
	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
	"github.com/velora/velora-backend/pkg/pagination"
)

const (
	paymentExpiry    = 24 * time.Hour
	nonPaymentExpiry = 72 * time.Hour
)

// ListQuery filters ledger entry listings. Nil fields are ignored.
type ListQuery struct {
	Status  *enums.TransactionStatus
	Type    *enums.TransactionType
	UserID  *uuid.UUID
	StoreID *uuid.UUID
	Limit   int
}

// StatusCount aggregates entries sharing a status.
type StatusCount struct {
	Status      enums.TransactionStatus `json:"status"`
	Count       int64                   `json:"count"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.LedgerEntry, error)
	List(ctx context.Context, query ListQuery) ([]models.LedgerEntry, error)
	UpdateChecked(ctx context.Context, entry *models.LedgerEntry) error
	StatusCounts(ctx context.Context) ([]StatusCount, error)
	RecentFailures(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error)
	CountRetryAnomalies(ctx context.Context) (int64, error)
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

// Create persists a new entry. The expiry deadline is derived exactly once
// here; lifecycle transitions never touch it again.
func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	now := r.now().UTC()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.ExpiresAt.IsZero() {
		if entry.Type == enums.TransactionTypePayment {
			entry.ExpiresAt = entry.CreatedAt.Add(paymentExpiry)
		} else {
			entry.ExpiresAt = entry.CreatedAt.Add(nonPaymentExpiry)
		}
	}
	if entry.Version == 0 {
		entry.Version = 1
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if db.IsUniqueViolation(err, "transaction_id") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction id already recorded").
				WithDetails(map[string]any{"transaction_id": entry.TransactionID})
		}
		return err
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Type != nil {
		q = q.Where("type = ?", *query.Type)
	}
	if query.UserID != nil {
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.StoreID != nil {
		q = q.Where("store_id = ?", *query.StoreID)
	}

	var entries []models.LedgerEntry
	if err := q.
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(query.Limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateChecked rewrites the mutable portion of the entry, guarded by the
// version read at load time. A concurrent writer that committed first leaves
// this call with zero affected rows.
func (r *repository) UpdateChecked(ctx context.Context, entry *models.LedgerEntry) error {
	loadedVersion := entry.Version
	updates := map[string]any{
		"status":       entry.Status,
		"description":  entry.Description,
		"metadata":     entry.Metadata,
		"attempted_at": entry.AttemptedAt,
		"completed_at": entry.CompletedAt,
		"failed_at":    entry.FailedAt,
		"processed_by": entry.ProcessedBy,
		"notes":        entry.Notes,
		"retry_count":  entry.RetryCount,
		"version":      loadedVersion + 1,
		"updated_at":   r.now().UTC(),
	}

	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND version = ?", entry.ID, loadedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).
			Where("id = ?", entry.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return pkgerrors.New(pkgerrors.CodeStaleWrite, "ledger entry changed since it was read").
			WithDetails(map[string]any{"id": entry.ID, "version": loadedVersion})
	}

	entry.Version = loadedVersion + 1
	return nil
}

func (r *repository) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) RecentFailures(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error) {
	cutoff := r.now().UTC().Add(-window)
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at >= ?", enums.TransactionStatusFailed, cutoff).
		Order("updated_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) CountRetryAnomalies(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("retry_count > ?", RetryCap).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
