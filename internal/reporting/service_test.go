package reporting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/internal/commission"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
)

type fakeLedgerRepo struct {
	statusCounts        func(ctx context.Context) ([]ledger.StatusCount, error)
	recentFailures      func(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error)
	countRetryAnomalies func(ctx context.Context) (int64, error)
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.LedgerEntry, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) List(ctx context.Context, query ledger.ListQuery) ([]models.LedgerEntry, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) UpdateChecked(ctx context.Context, entry *models.LedgerEntry) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) StatusCounts(ctx context.Context) ([]ledger.StatusCount, error) {
	return f.statusCounts(ctx)
}

func (f *fakeLedgerRepo) RecentFailures(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error) {
	return f.recentFailures(ctx, window)
}

func (f *fakeLedgerRepo) CountRetryAnomalies(ctx context.Context) (int64, error) {
	return f.countRetryAnomalies(ctx)
}

type fakeCommissionRepo struct {
	payoutSummaries func(ctx context.Context) ([]commission.PayoutSummary, error)
}

func (f *fakeCommissionRepo) WithTx(tx *gorm.DB) commission.Repository { return f }

func (f *fakeCommissionRepo) Create(ctx context.Context, record *models.CommissionRecord) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeCommissionRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCommissionRepo) PayoutSummaries(ctx context.Context) ([]commission.PayoutSummary, error) {
	return f.payoutSummaries(ctx)
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{CommissionRepo: &fakeCommissionRepo{}})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{LedgerRepo: &fakeLedgerRepo{}})
	assert.Error(t, err)
}

func TestTransactionStatus(t *testing.T) {
	counts := []ledger.StatusCount{
		{Status: enums.TransactionStatusPending, Count: 3, TotalAmount: decimal.NewFromInt(3000)},
		{Status: enums.TransactionStatusCompleted, Count: 7, TotalAmount: decimal.NewFromInt(9100)},
	}
	svc, err := NewService(ServiceParams{
		LedgerRepo: &fakeLedgerRepo{
			statusCounts: func(ctx context.Context) ([]ledger.StatusCount, error) {
				return counts, nil
			},
			countRetryAnomalies: func(ctx context.Context) (int64, error) {
				return 2, nil
			},
		},
		CommissionRepo: &fakeCommissionRepo{},
	})
	require.NoError(t, err)

	report, err := svc.TransactionStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, counts, report.Counts)
	assert.Equal(t, int64(2), report.RetryAnomalies)
}

func TestTransactionStatus_AggregateError(t *testing.T) {
	svc, err := NewService(ServiceParams{
		LedgerRepo: &fakeLedgerRepo{
			statusCounts: func(ctx context.Context) ([]ledger.StatusCount, error) {
				return nil, fmt.Errorf("connection reset")
			},
		},
		CommissionRepo: &fakeCommissionRepo{},
	})
	require.NoError(t, err)

	_, err = svc.TransactionStatus(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestRecentFailures_DefaultsWindow(t *testing.T) {
	var gotWindow time.Duration
	svc, err := NewService(ServiceParams{
		LedgerRepo: &fakeLedgerRepo{
			recentFailures: func(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error) {
				gotWindow = window
				return []models.LedgerEntry{{TransactionID: "TXN-1"}}, nil
			},
		},
		CommissionRepo: &fakeCommissionRepo{},
	})
	require.NoError(t, err)

	report, err := svc.RecentFailures(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, gotWindow)
	assert.Equal(t, 24, report.WindowHours)
	assert.Len(t, report.Entries, 1)
}

func TestRecentFailures_RejectsOversizedWindow(t *testing.T) {
	svc, err := NewService(ServiceParams{
		LedgerRepo:     &fakeLedgerRepo{},
		CommissionRepo: &fakeCommissionRepo{},
	})
	require.NoError(t, err)

	_, err = svc.RecentFailures(context.Background(), maxFailureWindowHours+1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestStorePayouts(t *testing.T) {
	storeID := uuid.New()
	summaries := []commission.PayoutSummary{
		{
			StoreID:          storeID,
			Status:           enums.CommissionStatusPending,
			Count:            4,
			TotalAmount:      decimal.NewFromInt(4000),
			CommissionAmount: decimal.NewFromInt(280),
			StoreAmount:      decimal.NewFromInt(3720),
		},
	}
	svc, err := NewService(ServiceParams{
		LedgerRepo: &fakeLedgerRepo{},
		CommissionRepo: &fakeCommissionRepo{
			payoutSummaries: func(ctx context.Context) ([]commission.PayoutSummary, error) {
				return summaries, nil
			},
		},
	})
	require.NoError(t, err)

	got, err := svc.StorePayouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summaries, got)
}
