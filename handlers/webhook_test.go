package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func webhookRouter() *gin.Engine {
	r := gin.New()
	r.POST("/api/plaid/webhook", PlaidWebhook)
	return r
}

func TestPlaidWebhookFlagsBrokenItem(t *testing.T) {
	loadTestConfig(t)
	mock := swapMockDB(t)
	r := webhookRouter()

	mock.ExpectExec("UPDATE plaid_items SET needs_update").
		WithArgs("item-77").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, r, http.MethodPost, "/api/plaid/webhook", map[string]any{
		"webhook_type": "ITEM",
		"webhook_code": "ERROR",
		"item_id":      "item-77",
		"error":        map[string]string{"error_code": "ITEM_LOGIN_REQUIRED"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPlaidWebhookIgnoresRoutineCodes(t *testing.T) {
	loadTestConfig(t)
	mock := swapMockDB(t)
	r := webhookRouter()

	w := doJSON(t, r, http.MethodPost, "/api/plaid/webhook", map[string]any{
		"webhook_type": "TRANSACTIONS",
		"webhook_code": "DEFAULT_UPDATE",
		"item_id":      "item-77",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("routine webhook must not write: %v", err)
	}
}

// Plaid retries on non-2xx, so even unparseable deliveries get acknowledged.
func TestPlaidWebhookAcknowledgesGarbage(t *testing.T) {
	loadTestConfig(t)
	swapMockDB(t)
	r := webhookRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/plaid/webhook", strings.NewReader("not json at all"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
