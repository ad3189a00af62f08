package enums

import "fmt"

// StoreStatus captures the operational state of a tenant store.
type StoreStatus string

const (
	StoreStatusActive    StoreStatus = "active"
	StoreStatusSuspended StoreStatus = "suspended"
	StoreStatusReadOnly  StoreStatus = "read_only"
)

var validStoreStatuses = []StoreStatus{
	StoreStatusActive,
	StoreStatusSuspended,
	StoreStatusReadOnly,
}

// String implements fmt.Stringer.
func (s StoreStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreStatus.
func (s StoreStatus) IsValid() bool {
	for _, candidate := range validStoreStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStoreStatus converts raw input into a StoreStatus.
func ParseStoreStatus(value string) (StoreStatus, error) {
	for _, candidate := range validStoreStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid store status %q", value)
}

// OrderSource distinguishes own-account sales from marketplace pass-through.
type OrderSource string

const (
	OrderSourceOwnStore    OrderSource = "own_store"
	OrderSourceMarketplace OrderSource = "marketplace"
)

// IsValid reports whether the order source is recognized.
func (o OrderSource) IsValid() bool {
	return o == OrderSourceOwnStore || o == OrderSourceMarketplace
}
