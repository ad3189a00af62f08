// Package webhooks terminates inbound PSP callbacks. Handlers hand the raw
// body and headers to the payment service untouched so signature verification
// sees exactly the bytes the provider signed.
package webhooks

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cokeastorga/paylane/api/responses"
	"github.com/cokeastorga/paylane/internal/payments"
	"github.com/cokeastorga/paylane/pkg/enums"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

// ProviderWebhook handles POST /webhooks/{provider}.
//
// Duplicates, orphans and out-of-order events are acknowledged with 200 so the
// provider stops retrying; only infrastructure failures return 5xx.
func ProviderWebhook(service *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := enums.ParseProvider(chi.URLParam(r, "provider"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown provider"))
			return
		}

		rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook body"))
			return
		}

		headers := make(map[string]string, len(r.Header))
		for name := range r.Header {
			headers[name] = r.Header.Get(name)
		}

		result, err := service.ProcessWebhook(r.Context(), provider, rawBody, headers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"outcome":   string(result.Outcome),
			"intent_id": result.IntentID,
			"status":    result.Status.String(),
		})
	}
}
