package stores

import (
	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
)

// AssertCanCharge rejects new payment intents for stores that must not take
// money: suspended stores, read-only stores and stores with payments switched
// off.
func AssertCanCharge(store *models.Store) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	switch store.Status {
	case enums.StoreStatusSuspended:
		return pkgerrors.New(pkgerrors.CodeStoreSuspended, "store is suspended")
	case enums.StoreStatusReadOnly:
		return pkgerrors.New(pkgerrors.CodeReadOnlyModeEnabled, "store is read only")
	}
	if !store.PaymentsEnabled {
		return pkgerrors.New(pkgerrors.CodeProviderDisabled, "payments disabled for store")
	}
	return nil
}

// AssertCanPayout rejects payout requests for suspended stores. Read-only
// stores may still withdraw their existing balance.
func AssertCanPayout(store *models.Store) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	if store.Status == enums.StoreStatusSuspended {
		return pkgerrors.New(pkgerrors.CodeStoreSuspended, "store is suspended")
	}
	return nil
}
