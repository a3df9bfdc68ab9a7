package commission

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/enums"
)

// PayoutSummary aggregates commission records for one store and status.
type PayoutSummary struct {
	StoreID          uuid.UUID              `json:"store_id"`
	Status           enums.CommissionStatus `json:"status"`
	Count            int64                  `json:"count"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	CommissionAmount decimal.Decimal        `json:"commission_amount"`
	StoreAmount      decimal.Decimal        `json:"store_amount"`
}

// Repository manages persistence for commission records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CommissionRecord) error
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionRecord, error)
	PayoutSummaries(ctx context.Context) ([]PayoutSummary, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided
// database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.CommissionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionRecord, error) {
	var records []models.CommissionRecord
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) PayoutSummaries(ctx context.Context) ([]PayoutSummary, error) {
	var rows []PayoutSummary
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Select(`store_id, status, COUNT(*) AS count,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COALESCE(SUM(commission_amount), 0) AS commission_amount,
			COALESCE(SUM(store_amount), 0) AS store_amount`).
		Group("store_id, status").
		Order("store_id, status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
