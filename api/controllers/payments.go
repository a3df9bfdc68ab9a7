package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velora/velora-backend/api/responses"
	"github.com/velora/velora-backend/api/validators"
	"github.com/velora/velora-backend/internal/payments"
	"github.com/velora/velora-backend/pkg/db/types"
	"github.com/velora/velora-backend/pkg/enums"
	pkgerrors "github.com/velora/velora-backend/pkg/errors"
	"github.com/velora/velora-backend/pkg/logger"
)

type captureRequest struct {
	TransactionID  string         `json:"transaction_id" validate:"required,max=120"`
	UserID         string         `json:"user_id" validate:"required,uuid"`
	StoreID        string         `json:"store_id" validate:"required,uuid"`
	OrderID        *string        `json:"order_id,omitempty" validate:"omitempty,uuid"`
	BookingID      *string        `json:"booking_id,omitempty" validate:"omitempty,uuid"`
	Amount         string         `json:"amount" validate:"required"`
	Currency       string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod  string         `json:"payment_method" validate:"required"`
	Provider       string         `json:"payment_provider" validate:"required"`
	Description    *string        `json:"description,omitempty" validate:"omitempty,max=500"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CommissionRate *string        `json:"commission_rate,omitempty"`
}

// CapturePayment records a pending ledger entry plus its commission record.
func CapturePayment(service payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var req captureRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := service.Capture(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func (req captureRequest) toInput() (*payments.CaptureInput, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}

	var orderID, bookingID *uuid.UUID
	if req.OrderID != nil {
		parsed, err := uuid.Parse(*req.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
		}
		orderID = &parsed
	}
	if req.BookingID != nil {
		parsed, err := uuid.Parse(*req.BookingID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id")
		}
		bookingID = &parsed
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	provider, err := enums.ParsePaymentProvider(req.Provider)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment provider")
	}

	var rate *decimal.Decimal
	if req.CommissionRate != nil {
		parsed, err := decimal.NewFromString(*req.CommissionRate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission rate")
		}
		rate = &parsed
	}

	return &payments.CaptureInput{
		TransactionID:  req.TransactionID,
		UserID:         userID,
		StoreID:        storeID,
		OrderID:        orderID,
		BookingID:      bookingID,
		Amount:         amount,
		Currency:       req.Currency,
		Method:         method,
		Provider:       provider,
		Description:    req.Description,
		Metadata:       types.JSONMap(req.Metadata),
		CommissionRate: rate,
	}, nil
}
