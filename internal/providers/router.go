package providers

import (
	"github.com/cokeastorga/paylane/pkg/breaker"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// Rule matches a payment request to a candidate provider. Empty match fields
// are wildcards. Rules are evaluated in order; the first rule whose provider
// is enabled, registered and circuit-available wins.
type Rule struct {
	Country  string
	Currency enums.Currency
	Method   enums.PaymentMethod
	Provider enums.Provider
}

func (r Rule) matches(country string, currency enums.Currency, method enums.PaymentMethod) bool {
	if r.Country != "" && r.Country != country {
		return false
	}
	if r.Currency != "" && r.Currency != currency {
		return false
	}
	if r.Method != "" && r.Method != method {
		return false
	}
	return true
}

// DefaultRules is the routing table used when no override is configured.
var DefaultRules = []Rule{
	{Country: "CL", Currency: enums.CurrencyCLP, Method: enums.PaymentMethodCard, Provider: enums.ProviderWebpay},
	{Country: "CL", Method: enums.PaymentMethodBankTransfer, Provider: enums.ProviderFlow},
	{Country: "CL", Provider: enums.ProviderMercadoPago},
	{Provider: enums.ProviderMercadoPago},
}

// RouterParams wires a Router.
type RouterParams struct {
	Registry *Registry
	Breaker  *breaker.Registry
	Rules    []Rule
	// Disabled lists providers taken out of rotation by configuration.
	Disabled []enums.Provider
}

// Router picks a provider for a new payment intent.
type Router struct {
	registry *Registry
	breaker  *breaker.Registry
	rules    []Rule
	disabled map[enums.Provider]bool
}

// NewRouter builds a router. Rules default to DefaultRules when empty.
func NewRouter(params RouterParams) *Router {
	rules := params.Rules
	if len(rules) == 0 {
		rules = DefaultRules
	}
	disabled := make(map[enums.Provider]bool, len(params.Disabled))
	for _, provider := range params.Disabled {
		disabled[provider] = true
	}
	return &Router{
		registry: params.Registry,
		breaker:  params.Breaker,
		rules:    rules,
		disabled: disabled,
	}
}

// Pick resolves an explicit provider override, still honoring the disabled
// list and the circuit state.
func (r *Router) Pick(provider enums.Provider) (Adapter, error) {
	if r.disabled[provider] {
		return nil, pkgerrors.New(pkgerrors.CodeProviderDisabled, "provider "+provider.String()+" is disabled")
	}
	adapter, err := r.registry.Adapter(provider)
	if err != nil {
		return nil, err
	}
	if r.breaker != nil && !r.breaker.IsAvailable(provider) {
		return nil, pkgerrors.New(pkgerrors.CodeProviderCircuitOpen, "provider "+provider.String()+" circuit is open")
	}
	return adapter, nil
}

// Route returns the adapter for the first eligible rule. When every matching
// candidate is disabled, unregistered or circuit-open it fails with
// NO_PROVIDER_AVAILABLE carrying the circuit snapshots as details.
func (r *Router) Route(country string, currency enums.Currency, method enums.PaymentMethod) (Adapter, error) {
	for _, rule := range r.rules {
		if !rule.matches(country, currency, method) {
			continue
		}
		if r.disabled[rule.Provider] {
			continue
		}
		adapter, err := r.registry.Adapter(rule.Provider)
		if err != nil {
			continue
		}
		if r.breaker != nil && !r.breaker.IsAvailable(rule.Provider) {
			continue
		}
		return adapter, nil
	}

	err := pkgerrors.New(pkgerrors.CodeNoProviderAvailable, "no provider available for request")
	if r.breaker != nil {
		err = err.WithDetails(map[string]any{"circuits": r.breaker.Snapshots()})
	}
	return nil, err
}
