package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/auth"
	"github.com/cokeastorga/paylane/pkg/config"
	"github.com/cokeastorga/paylane/pkg/enums"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "paylane-test",
		ExpirationMinutes: 15,
	}
	return NewRouter(Deps{Config: cfg})
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Paylane-Env"); got != "test" {
		t.Fatalf("env header mismatch: %q", got)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+uuid.NewString()+"/balance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAdminRoutesRejectOperatorRole(t *testing.T) {
	router := testRouter(t)

	cfg := config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "paylane-test",
		ExpirationMinutes: 15,
	}
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		OperatorID: uuid.New(),
		Role:       enums.OperatorRoleOperator,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payouts/"+uuid.NewString()+"/finalize", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator role, got %d", rec.Code)
	}
}
