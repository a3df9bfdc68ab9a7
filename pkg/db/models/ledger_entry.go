package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velora/velora-backend/pkg/db/types"
	"github.com/velora/velora-backend/pkg/enums"
)

// LedgerEntry records one payment/refund/payout/adjustment attempt and its
// current processing state. Entries are owned by the payment-processing flow
// and mutate only through lifecycle transitions; the application never
// hard-deletes them.
type LedgerEntry struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TransactionID string                  `gorm:"column:transaction_id;not null;unique" json:"transaction_id"`
	UserID        uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	StoreID       uuid.UUID               `gorm:"column:store_id;type:uuid;not null;index" json:"store_id"`
	OrderID       *uuid.UUID              `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	BookingID     *uuid.UUID              `gorm:"column:booking_id;type:uuid" json:"booking_id,omitempty"`
	Amount        decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Currency      string                  `gorm:"column:currency;not null;default:'LKR'" json:"currency"`
	PaymentMethod enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null" json:"payment_method"`
	Provider      enums.PaymentProvider   `gorm:"column:payment_provider;type:payment_provider;not null" json:"payment_provider"`
	Type          enums.TransactionType   `gorm:"column:type;type:transaction_type;not null;default:'payment'" json:"type"`
	Status        enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending';index" json:"status"`
	Description   *string                 `gorm:"column:description;size:500" json:"description,omitempty"`
	Metadata      types.JSONMap           `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	AttemptedAt *time.Time `gorm:"column:attempted_at" json:"attempted_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FailedAt    *time.Time `gorm:"column:failed_at" json:"failed_at,omitempty"`
	ProcessedBy *uuid.UUID `gorm:"column:processed_by;type:uuid" json:"processed_by,omitempty"`
	Notes       *string    `gorm:"column:notes;size:1000" json:"notes,omitempty"`

	RetryCount int       `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	// Version guards whole-record rewrites; stale writers are rejected.
	Version   int       `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
