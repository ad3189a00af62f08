package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/api/validators"
	"github.com/cokeastorga/paylane/internal/stores"
	"github.com/cokeastorga/paylane/pkg/db/models"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

// StoreProfile handles GET /v1/stores/{storeId}.
func StoreProfile(repo *stores.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store id must be a uuid"))
			return
		}

		store, err := repo.FindByID(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"id":               store.ID,
			"name":             store.Name,
			"status":           store.Status.String(),
			"payments_enabled": store.PaymentsEnabled,
			"country":          store.Country,
			"currency":         store.Currency.String(),
		})
	}
}

type createBankAccountRequest struct {
	HolderName    string `json:"holder_name" validate:"required,min=3,max=120"`
	BankName      string `json:"bank_name" validate:"required,min=2,max=120"`
	AccountNumber string `json:"account_number" validate:"required,min=5,max=34"`
	AccountType   string `json:"account_type" validate:"required,oneof=checking savings vista"`
}

// CreateBankAccount handles POST /v1/stores/{storeId}/bank-accounts. New
// accounts always start unverified; verification is a back-office action.
func CreateBankAccount(repo *stores.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store id must be a uuid"))
			return
		}

		var req createBankAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := repo.FindByID(r.Context(), storeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account := &models.BankAccount{
			StoreID:       storeID,
			HolderName:    req.HolderName,
			BankName:      req.BankName,
			AccountNumber: req.AccountNumber,
			AccountType:   req.AccountType,
		}
		if err := repo.CreateBankAccount(r.Context(), account); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":       account.ID,
			"store_id": account.StoreID,
			"verified": account.Verified,
		})
	}
}
