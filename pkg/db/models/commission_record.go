package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velora/velora-backend/pkg/enums"
)

// CommissionRecord is the derived platform-fee/store-payout split for one
// completed order or booking. Records are append-only; only status moves,
// and only via the external settlement process.
type CommissionRecord struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoreID          uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index" json:"store_id"`
	OrderID          *uuid.UUID             `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	BookingID        *uuid.UUID             `gorm:"column:booking_id;type:uuid" json:"booking_id,omitempty"`
	Type             enums.CommissionType   `gorm:"column:type;type:commission_type;not null" json:"type"`
	TotalAmount      decimal.Decimal        `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:numeric(6,4);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:numeric(14,2);not null" json:"commission_amount"`
	StoreAmount      decimal.Decimal        `gorm:"column:store_amount;type:numeric(14,2);not null" json:"store_amount"`
	Currency         string                 `gorm:"column:currency;not null;default:'LKR'" json:"currency"`
	Status           enums.CommissionStatus `gorm:"column:status;type:commission_status;not null;default:'pending';index" json:"status"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (CommissionRecord) TableName() string {
	return "commission_records"
}
