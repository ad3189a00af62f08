package enums

import "fmt"

// Provider identifies an external payment service provider.
type Provider string

const (
	ProviderWebpay      Provider = "webpay"
	ProviderMercadoPago Provider = "mercadopago"
	ProviderFlow        Provider = "flow"
)

var validProviders = []Provider{
	ProviderWebpay,
	ProviderMercadoPago,
	ProviderFlow,
}

// String implements fmt.Stringer.
func (p Provider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Provider.
func (p Provider) IsValid() bool {
	for _, candidate := range validProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProvider converts raw input into a Provider.
func ParseProvider(value string) (Provider, error) {
	for _, candidate := range validProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid provider %q", value)
}
