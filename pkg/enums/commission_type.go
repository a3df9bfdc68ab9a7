package enums

import "fmt"

// CommissionType mirrors whether a commission record belongs to an order or
// a booking.
type CommissionType string

const (
	CommissionTypeOrder   CommissionType = "order"
	CommissionTypeBooking CommissionType = "booking"
)

var validCommissionTypes = []CommissionType{
	CommissionTypeOrder,
	CommissionTypeBooking,
}

// IsValid reports whether the value is a known CommissionType.
func (t CommissionType) IsValid() bool {
	for _, candidate := range validCommissionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCommissionType converts raw input into a CommissionType.
func ParseCommissionType(value string) (CommissionType, error) {
	for _, candidate := range validCommissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission type %q", value)
}
