package services

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bankfeed/config"
)

func testEnv(baseURL string) config.PlaidEnvironment {
	return config.PlaidEnvironment{
		Name:     config.PlaidEnvSandbox,
		BaseURL:  baseURL,
		ClientID: "test-client",
		Secret:   "test-secret",
	}
}

func TestDecodePlaidErrorStructured(t *testing.T) {
	body := []byte(`{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED","error_message":"the login details of this item have changed","display_message":null,"request_id":"req-1"}`)

	pe := decodePlaidError(http.StatusBadRequest, body)
	if pe.ErrorCode != "ITEM_LOGIN_REQUIRED" {
		t.Fatalf("error code = %q", pe.ErrorCode)
	}
	if pe.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", pe.StatusCode)
	}
	if got := pe.FriendlyMessage(); got != "This bank connection has expired and must be re-linked." {
		t.Fatalf("friendly message = %q", got)
	}
}

func TestDecodePlaidErrorPassthrough(t *testing.T) {
	pe := decodePlaidError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	if pe.ErrorCode != "" {
		t.Fatalf("error code = %q, want empty", pe.ErrorCode)
	}
	if pe.RawBody != "<html>bad gateway</html>" {
		t.Fatalf("raw body = %q", pe.RawBody)
	}
	if pe.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", pe.StatusCode)
	}
}

func TestFriendlyMessageFallbacks(t *testing.T) {
	pe := &PlaidError{ErrorCode: "RATE_LIMIT_EXCEEDED", ErrorMessage: "rate limit exceeded", DisplayMessage: "Too many requests right now."}
	if got := pe.FriendlyMessage(); got != "Too many requests right now." {
		t.Fatalf("friendly message = %q, want display_message", got)
	}

	pe.DisplayMessage = ""
	if got := pe.FriendlyMessage(); got != "rate limit exceeded" {
		t.Fatalf("friendly message = %q, want error_message", got)
	}
}

func TestCreateLinkTokenModes(t *testing.T) {
	var bodies [][]byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/link/token/create" {
			t.Errorf("path = %s, want /link/token/create", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"link_token":"link-sandbox-abc","expiration":"2026-09-01T00:00:00Z"}`))
	}))
	defer ts.Close()

	env := testEnv(ts.URL)

	token, err := CreateLinkToken(env, "user-1", "")
	if err != nil {
		t.Fatalf("CreateLinkToken: %v", err)
	}
	if token != "link-sandbox-abc" {
		t.Fatalf("link token = %q", token)
	}

	if _, err := CreateLinkToken(env, "user-1", "access-sandbox-existing"); err != nil {
		t.Fatalf("CreateLinkToken update mode: %v", err)
	}

	if len(bodies) != 2 {
		t.Fatalf("upstream calls = %d, want 2", len(bodies))
	}

	var fresh, update map[string]any
	if err := json.Unmarshal(bodies[0], &fresh); err != nil {
		t.Fatalf("decode fresh request: %v", err)
	}
	if err := json.Unmarshal(bodies[1], &update); err != nil {
		t.Fatalf("decode update request: %v", err)
	}

	if _, ok := fresh["products"]; !ok {
		t.Fatal("fresh link request must carry products")
	}
	if fresh["client_id"] != "test-client" || fresh["secret"] != "test-secret" {
		t.Fatal("credentials not injected from the resolved environment")
	}
	user, _ := fresh["user"].(map[string]any)
	if user["client_user_id"] != "user-1" {
		t.Fatalf("client_user_id = %v", user["client_user_id"])
	}

	if _, ok := update["products"]; ok {
		t.Fatal("update-mode link request must omit products")
	}
	if update["access_token"] != "access-sandbox-existing" {
		t.Fatalf("update-mode access_token = %v", update["access_token"])
	}
}

func TestCallPlaidErrorUnderSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_ACCESS_TOKEN","error_message":"could not find matching access token","request_id":"req-2"}`))
	}))
	defer ts.Close()

	_, err := FetchAccounts(testEnv(ts.URL), "access-sandbox-bogus")
	var pe *PlaidError
	if !errors.As(err, &pe) {
		t.Fatalf("want *PlaidError, got %v", err)
	}
	if pe.ErrorCode != "INVALID_ACCESS_TOKEN" {
		t.Fatalf("error code = %q", pe.ErrorCode)
	}
	if pe.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want the upstream 200", pe.StatusCode)
	}
}

func TestCallPlaidNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error_type":"RATE_LIMIT_EXCEEDED","error_code":"TRANSACTIONS_LIMIT","error_message":"rate limit exceeded","request_id":"req-3"}`))
	}))
	defer ts.Close()

	_, _, err := FetchTransactions(testEnv(ts.URL), "access-sandbox-x", time.Now().AddDate(0, -1, 0), time.Now(), 100)
	var pe *PlaidError
	if !errors.As(err, &pe) {
		t.Fatalf("want *PlaidError, got %v", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests || pe.ErrorCode != "TRANSACTIONS_LIMIT" {
		t.Fatalf("decoded error = %+v", pe)
	}
	if pe.ContentType != "application/json" {
		t.Fatalf("content type = %q", pe.ContentType)
	}
}

// A body that is not Plaid's error shape keeps the upstream content type so
// handlers can pass it through faithfully.
func TestCallPlaidKeepsUpstreamContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer ts.Close()

	_, err := FetchAccounts(testEnv(ts.URL), "access-sandbox-x")
	var pe *PlaidError
	if !errors.As(err, &pe) {
		t.Fatalf("want *PlaidError, got %v", err)
	}
	if pe.ErrorCode != "" || pe.RawBody != "<html>bad gateway</html>" {
		t.Fatalf("decoded error = %+v", pe)
	}
	if pe.ContentType != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", pe.ContentType)
	}
}

func TestExchangePublicToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/item/public_token/exchange" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-sandbox-new","item_id":"item-77","request_id":"req-4"}`))
	}))
	defer ts.Close()

	res, err := ExchangePublicToken(testEnv(ts.URL), "public-sandbox-once")
	if err != nil {
		t.Fatalf("ExchangePublicToken: %v", err)
	}
	if res.AccessToken != "access-sandbox-new" || res.ItemID != "item-77" {
		t.Fatalf("result = %+v", res)
	}
}

func TestFetchAccountsReshapes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/balance/get" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"accounts": [
				{"account_id":"acc-1","name":"Checking","official_name":"Everyday Checking","mask":"0000","type":"depository","subtype":"checking","balances":{"available":100.50,"current":110.25,"iso_currency_code":"USD"}},
				{"account_id":"acc-2","name":"Card","mask":"4444","type":"credit","subtype":"credit card","balances":{"available":null,"current":432.10,"iso_currency_code":"USD"}}
			],
			"request_id":"req-5"
		}`))
	}))
	defer ts.Close()

	accounts, err := FetchAccounts(testEnv(ts.URL), "access-sandbox-1")
	if err != nil {
		t.Fatalf("FetchAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(accounts))
	}

	if accounts[0].Classification != ClassificationAsset {
		t.Fatalf("depository classified as %s", accounts[0].Classification)
	}
	if accounts[1].Classification != ClassificationLiability {
		t.Fatalf("credit classified as %s", accounts[1].Classification)
	}
	if accounts[0].Balances.Available == nil || *accounts[0].Balances.Available != 100.50 {
		t.Fatalf("available balance lost in reshape: %+v", accounts[0].Balances)
	}
	if accounts[1].Balances.Available != nil {
		t.Fatal("null available balance must stay nil")
	}
	if accounts[1].Balances.ISOCurrencyCode != "USD" {
		t.Fatalf("currency = %q", accounts[1].Balances.ISOCurrencyCode)
	}
}

func TestFetchTransactionsWindow(t *testing.T) {
	var captured []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/get" {
			t.Errorf("path = %s", r.URL.Path)
		}
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"transactions": [
				{"transaction_id":"tx-1","account_id":"acc-1","name":"COFFEE SHOP","merchant_name":"Coffee Shop","amount":4.50,"iso_currency_code":"USD","date":"2026-07-30","category":["Food and Drink","Coffee"],"pending":false},
				{"transaction_id":"tx-2","account_id":"acc-1","name":"PAYROLL","amount":-2200,"iso_currency_code":"USD","date":"2026-07-28","pending":false}
			],
			"total_transactions": 57,
			"request_id":"req-6"
		}`))
	}))
	defer ts.Close()

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	txns, total, err := FetchTransactions(testEnv(ts.URL), "access-sandbox-1", start, end, 250)
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if len(txns) != 2 || total != 57 {
		t.Fatalf("got %d transactions, total %d", len(txns), total)
	}
	if txns[0].MerchantName != "Coffee Shop" || txns[1].Amount != -2200 {
		t.Fatalf("reshape lost fields: %+v", txns)
	}

	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Options   struct {
			Count int `json:"count"`
		} `json:"options"`
	}
	if err := json.Unmarshal(captured, &req); err != nil {
		t.Fatalf("decode upstream request: %v", err)
	}
	if req.StartDate != "2026-07-01" || req.EndDate != "2026-07-31" {
		t.Fatalf("window = %s..%s", req.StartDate, req.EndDate)
	}
	if req.Options.Count != 250 {
		t.Fatalf("count option = %d", req.Options.Count)
	}
}
