package enums

import "fmt"

// PaymentProvider identifies the upstream processor that handled a payment.
type PaymentProvider string

const (
	PaymentProviderStripe   PaymentProvider = "stripe"
	PaymentProviderPaypal   PaymentProvider = "paypal"
	PaymentProviderRazorpay PaymentProvider = "razorpay"
	PaymentProviderBank     PaymentProvider = "bank"
	PaymentProviderManual   PaymentProvider = "manual"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderStripe,
	PaymentProviderPaypal,
	PaymentProviderRazorpay,
	PaymentProviderBank,
	PaymentProviderManual,
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
