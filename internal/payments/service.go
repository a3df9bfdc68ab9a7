package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velora/velora-backend/internal/commission"
	"github.com/velora/velora-backend/internal/ledger"
	"github.com/velora/velora-backend/pkg/db/models"
	"github.com/velora/velora-backend/pkg/db/types"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
)

const (
	defaultCurrency = "LKR"

	maxDescriptionLen = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service turns order/booking confirmations into a ledger entry plus its
// derived commission record.
type Service interface {
	Capture(ctx context.Context, input CaptureInput) (*CaptureResult, error)
}

// CaptureInput is what the order/booking creation flow supplies when a
// payment attempt is initiated.
type CaptureInput struct {
	TransactionID  string
	UserID         uuid.UUID
	StoreID        uuid.UUID
	OrderID        *uuid.UUID
	BookingID      *uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Method         enums.PaymentMethod
	Provider       enums.PaymentProvider
	Description    *string
	Metadata       types.JSONMap
	CommissionRate *decimal.Decimal
}

// CaptureResult returns both halves of the write.
type CaptureResult struct {
	Entry      *models.LedgerEntry      `json:"entry"`
	Commission *models.CommissionRecord `json:"commission"`
}

// ServiceParams groups dependencies for the capture service.
type ServiceParams struct {
	LedgerRepo     ledger.Repository
	CommissionRepo commission.Repository
	Tx             txRunner
}

type service struct {
	ledgerRepo     ledger.Repository
	commissionRepo commission.Repository
	tx             txRunner
}

// NewService builds a payment capture service.
func NewService(params ServiceParams) (Service, error) {
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.CommissionRepo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		ledgerRepo:     params.LedgerRepo,
		commissionRepo: params.CommissionRepo,
		tx:             params.Tx,
	}, nil
}

// Capture writes the ledger entry and commission record inside a single
// transaction, so a crash can never leave one without the other.
func (s *service) Capture(ctx context.Context, input CaptureInput) (*CaptureResult, error) {
	if err := validateCapture(input); err != nil {
		return nil, err
	}

	rate := commission.DefaultRate
	if input.CommissionRate != nil {
		rate = *input.CommissionRate
	}
	split, err := commission.Compute(input.Amount, rate)
	if err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(input.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	commissionType := enums.CommissionTypeOrder
	if input.BookingID != nil {
		commissionType = enums.CommissionTypeBooking
	}

	entry := &models.LedgerEntry{
		TransactionID: input.TransactionID,
		UserID:        input.UserID,
		StoreID:       input.StoreID,
		OrderID:       input.OrderID,
		BookingID:     input.BookingID,
		Amount:        input.Amount,
		Currency:      currency,
		PaymentMethod: input.Method,
		Provider:      input.Provider,
		Type:          enums.TransactionTypePayment,
		Status:        enums.TransactionStatusPending,
		Description:   input.Description,
		Metadata:      input.Metadata,
	}
	record := &models.CommissionRecord{
		StoreID:          input.StoreID,
		OrderID:          input.OrderID,
		BookingID:        input.BookingID,
		Type:             commissionType,
		TotalAmount:      input.Amount,
		CommissionRate:   rate,
		CommissionAmount: split.Commission,
		StoreAmount:      split.Store,
		Currency:         currency,
		Status:           enums.CommissionStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}
		if err := s.commissionRepo.WithTx(tx).Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission record")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "capture payment")
	}

	return &CaptureResult{Entry: entry, Commission: record}, nil
}

func validateCapture(input CaptureInput) error {
	if strings.TrimSpace(input.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if (input.OrderID == nil) == (input.BookingID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order id or booking id required")
	}
	if input.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.Provider.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}
	if input.Description != nil && len(*input.Description) > maxDescriptionLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "description too long").
			WithDetails(map[string]any{"max": maxDescriptionLen})
	}
	return nil
}
