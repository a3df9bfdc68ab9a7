package payments

import (
	"context"
	"fmt"
	"strings"
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
	created []*models.LedgerEntry
	err     error
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, entry)
	return nil
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
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) RecentFailures(ctx context.Context, window time.Duration) ([]models.LedgerEntry, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeLedgerRepo) CountRetryAnomalies(ctx context.Context) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

type fakeCommissionRepo struct {
	created []*models.CommissionRecord
	err     error
}

func (f *fakeCommissionRepo) WithTx(tx *gorm.DB) commission.Repository { return f }

func (f *fakeCommissionRepo) Create(ctx context.Context, record *models.CommissionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, record)
	return nil
}

func (f *fakeCommissionRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.CommissionRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeCommissionRepo) PayoutSummaries(ctx context.Context) ([]commission.PayoutSummary, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(nil)
}

func validInput() CaptureInput {
	orderID := uuid.New()
	return CaptureInput{
		TransactionID: "TXN-2024-042",
		UserID:        uuid.New(),
		StoreID:       uuid.New(),
		OrderID:       &orderID,
		Amount:        decimal.NewFromInt(1000),
		Method:        enums.PaymentMethodCard,
		Provider:      enums.PaymentProviderStripe,
	}
}

func newCaptureTest(t *testing.T) (Service, *fakeLedgerRepo, *fakeCommissionRepo, *fakeTxRunner) {
	t.Helper()
	ledgerRepo := &fakeLedgerRepo{}
	commissionRepo := &fakeCommissionRepo{}
	tx := &fakeTxRunner{}
	svc, err := NewService(ServiceParams{
		LedgerRepo:     ledgerRepo,
		CommissionRepo: commissionRepo,
		Tx:             tx,
	})
	require.NoError(t, err)
	return svc, ledgerRepo, commissionRepo, tx
}

func TestCapture_WritesEntryAndCommissionTogether(t *testing.T) {
	svc, ledgerRepo, commissionRepo, tx := newCaptureTest(t)
	input := validInput()

	result, err := svc.Capture(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, ledgerRepo.created, 1)
	require.Len(t, commissionRepo.created, 1)
	assert.Equal(t, 1, tx.calls)

	entry := result.Entry
	assert.Equal(t, input.TransactionID, entry.TransactionID)
	assert.Equal(t, enums.TransactionStatusPending, entry.Status)
	assert.Equal(t, enums.TransactionTypePayment, entry.Type)
	assert.Equal(t, "LKR", entry.Currency)

	record := result.Commission
	assert.Equal(t, enums.CommissionTypeOrder, record.Type)
	assert.Equal(t, enums.CommissionStatusPending, record.Status)
	assert.True(t, record.CommissionAmount.Equal(decimal.NewFromInt(70)), "commission = %s", record.CommissionAmount)
	assert.True(t, record.StoreAmount.Equal(decimal.NewFromInt(930)), "store = %s", record.StoreAmount)
	assert.True(t, record.CommissionAmount.Add(record.StoreAmount).Equal(entry.Amount))
}

func TestCapture_BookingReference(t *testing.T) {
	svc, _, commissionRepo, _ := newCaptureTest(t)
	input := validInput()
	input.OrderID = nil
	bookingID := uuid.New()
	input.BookingID = &bookingID

	result, err := svc.Capture(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionTypeBooking, result.Commission.Type)
	require.Len(t, commissionRepo.created, 1)
	assert.Equal(t, &bookingID, commissionRepo.created[0].BookingID)
}

func TestCapture_CustomCommissionRate(t *testing.T) {
	svc, _, _, _ := newCaptureTest(t)
	input := validInput()
	rate := decimal.RequireFromString("0.10")
	input.CommissionRate = &rate

	result, err := svc.Capture(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, result.Commission.CommissionAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Commission.StoreAmount.Equal(decimal.NewFromInt(900)))
}

func TestCapture_LedgerConflictAbortsCommission(t *testing.T) {
	svc, ledgerRepo, commissionRepo, _ := newCaptureTest(t)
	ledgerRepo.err = pkgerrors.New(pkgerrors.CodeConflict, "transaction id already recorded")

	_, err := svc.Capture(context.Background(), validInput())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Empty(t, commissionRepo.created)
}

func TestCapture_CommissionFailureSurfacesDependencyError(t *testing.T) {
	svc, _, commissionRepo, _ := newCaptureTest(t)
	commissionRepo.err = fmt.Errorf("connection reset")

	_, err := svc.Capture(context.Background(), validInput())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestCapture_Validation(t *testing.T) {
	svc, _, _, _ := newCaptureTest(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(input *CaptureInput)
	}{
		{"missing transaction id", func(input *CaptureInput) { input.TransactionID = " " }},
		{"missing user", func(input *CaptureInput) { input.UserID = uuid.Nil }},
		{"missing store", func(input *CaptureInput) { input.StoreID = uuid.Nil }},
		{"no reference", func(input *CaptureInput) { input.OrderID = nil }},
		{"both references", func(input *CaptureInput) {
			bookingID := uuid.New()
			input.BookingID = &bookingID
		}},
		{"negative amount", func(input *CaptureInput) { input.Amount = decimal.NewFromInt(-5) }},
		{"bad method", func(input *CaptureInput) { input.Method = "wire" }},
		{"bad provider", func(input *CaptureInput) { input.Provider = "venmo" }},
		{"oversized description", func(input *CaptureInput) {
			long := strings.Repeat("x", maxDescriptionLen+1)
			input.Description = &long
		}},
		{"bad rate", func(input *CaptureInput) {
			rate := decimal.NewFromInt(2)
			input.CommissionRate = &rate
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Capture(ctx, input)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}
