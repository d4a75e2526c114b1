package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bankfeed/config"
	"bankfeed/models"
)

const (
	plaidClientName          = "Bankfeed"
	plaidProductTransactions = "transactions"

	// The one upstream error code worth a friendlier message: the user has to
	// re-link the institution, nothing on our side can fix it.
	ErrCodeItemLoginRequired = "ITEM_LOGIN_REQUIRED"
)

var plaidHTTP = &http.Client{Timeout: 30 * time.Second}

// PlaidError carries Plaid's structured error payload when it decodes, or the
// raw upstream body when it does not. StatusCode and ContentType come from the
// upstream response (a 200 status is possible: Plaid can ship an error payload
// under a success status).
type PlaidError struct {
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`

	StatusCode  int    `json:"-"`
	RawBody     string `json:"-"`
	ContentType string `json:"-"`
}

func (e *PlaidError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("plaid: %s (%s)", e.ErrorCode, e.ErrorMessage)
	}
	return fmt.Sprintf("plaid: upstream status %d", e.StatusCode)
}

// FriendlyMessage returns the text shown to the caller alongside the code.
func (e *PlaidError) FriendlyMessage() string {
	if e.ErrorCode == ErrCodeItemLoginRequired {
		return "This bank connection has expired and must be re-linked."
	}
	if e.DisplayMessage != "" {
		return e.DisplayMessage
	}
	return e.ErrorMessage
}

func decodePlaidError(status int, body []byte) *PlaidError {
	raw := strings.TrimSpace(string(body))

	var pe PlaidError
	if err := json.Unmarshal(body, &pe); err != nil || pe.ErrorCode == "" {
		// Generic passthrough: caller gets the upstream status and raw body.
		return &PlaidError{StatusCode: status, RawBody: raw}
	}
	pe.StatusCode = status
	pe.RawBody = raw
	return &pe
}

// callPlaid performs one POST against the resolved environment and decodes the
// response into out. Any upstream failure comes back as *PlaidError; transport
// failures come back wrapped.
func callPlaid(env config.PlaidEnvironment, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode plaid request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, env.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build plaid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := plaidHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("contact plaid: %w", err)
	}
	defer resp.Body.Close()

	slurp, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read plaid response: %w", err)
	}

	upstreamType := resp.Header.Get("Content-Type")

	if resp.StatusCode/100 != 2 {
		perr := decodePlaidError(resp.StatusCode, slurp)
		perr.ContentType = upstreamType
		return perr
	}

	// Plaid can return an error payload under a 2xx status; surface it anyway.
	var sniff struct {
		ErrorCode string `json:"error_code"`
	}
	if json.Unmarshal(slurp, &sniff) == nil && sniff.ErrorCode != "" {
		perr := decodePlaidError(resp.StatusCode, slurp)
		perr.ContentType = upstreamType
		return perr
	}

	if err := json.Unmarshal(slurp, out); err != nil {
		return fmt.Errorf("decode plaid response: %w", err)
	}
	return nil
}

type plaidTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenRequest struct {
	ClientID     string         `json:"client_id"`
	Secret       string         `json:"secret"`
	ClientName   string         `json:"client_name"`
	Language     string         `json:"language"`
	CountryCodes []string       `json:"country_codes"`
	User         plaidTokenUser `json:"user"`
	Products     []string       `json:"products,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	Webhook      string         `json:"webhook,omitempty"`
}

// CreateLinkToken requests a link token for the given user. A non-empty
// accessToken switches Plaid Link into update mode for that item, in which
// case the products array must be omitted.
func CreateLinkToken(env config.PlaidEnvironment, userID, accessToken string) (string, error) {
	req := linkTokenRequest{
		ClientID:     env.ClientID,
		Secret:       env.Secret,
		ClientName:   plaidClientName,
		Language:     "en",
		CountryCodes: []string{"US"},
		User:         plaidTokenUser{ClientUserID: userID},
		Webhook:      config.Get().Plaid.WebhookURL,
	}
	if accessToken != "" {
		req.AccessToken = accessToken
	} else {
		req.Products = []string{plaidProductTransactions}
	}

	var out struct {
		LinkToken string `json:"link_token"`
	}
	if err := callPlaid(env, "/link/token/create", req, &out); err != nil {
		return "", err
	}
	return out.LinkToken, nil
}

type ExchangeResult struct {
	AccessToken string
	ItemID      string
}

// ExchangePublicToken trades a single-use public token for a long-lived
// access token.
func ExchangePublicToken(env config.PlaidEnvironment, publicToken string) (ExchangeResult, error) {
	req := struct {
		ClientID    string `json:"client_id"`
		Secret      string `json:"secret"`
		PublicToken string `json:"public_token"`
	}{env.ClientID, env.Secret, publicToken}

	var out struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := callPlaid(env, "/item/public_token/exchange", req, &out); err != nil {
		return ExchangeResult{}, err
	}
	return ExchangeResult{AccessToken: out.AccessToken, ItemID: out.ItemID}, nil
}

type plaidBalances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	ISOCurrencyCode string   `json:"iso_currency_code"`
}

type plaidAccount struct {
	AccountID    string        `json:"account_id"`
	Name         string        `json:"name"`
	OfficialName string        `json:"official_name"`
	Mask         string        `json:"mask"`
	Type         string        `json:"type"`
	Subtype      string        `json:"subtype"`
	Balances     plaidBalances `json:"balances"`
}

func accountFromPlaid(a plaidAccount) models.Account {
	return models.Account{
		AccountID:      a.AccountID,
		Name:           a.Name,
		OfficialName:   a.OfficialName,
		Mask:           a.Mask,
		Type:           a.Type,
		Subtype:        a.Subtype,
		Classification: ClassifyAccountType(a.Type),
		Balances: models.AccountBalances{
			Available:       a.Balances.Available,
			Current:         a.Balances.Current,
			ISOCurrencyCode: a.Balances.ISOCurrencyCode,
		},
	}
}

// FetchAccounts pulls current balances for every account on the item and
// narrows them to the fields the client needs.
func FetchAccounts(env config.PlaidEnvironment, accessToken string) ([]models.Account, error) {
	req := struct {
		ClientID    string `json:"client_id"`
		Secret      string `json:"secret"`
		AccessToken string `json:"access_token"`
	}{env.ClientID, env.Secret, accessToken}

	var out struct {
		Accounts []plaidAccount `json:"accounts"`
	}
	if err := callPlaid(env, "/accounts/balance/get", req, &out); err != nil {
		return nil, err
	}

	accounts := make([]models.Account, 0, len(out.Accounts))
	for _, a := range out.Accounts {
		accounts = append(accounts, accountFromPlaid(a))
	}
	return accounts, nil
}

type plaidTransaction struct {
	TransactionID   string   `json:"transaction_id"`
	AccountID       string   `json:"account_id"`
	Name            string   `json:"name"`
	MerchantName    string   `json:"merchant_name"`
	Amount          float64  `json:"amount"`
	ISOCurrencyCode string   `json:"iso_currency_code"`
	Date            string   `json:"date"`
	Category        []string `json:"category"`
	Pending         bool     `json:"pending"`
}

// FetchTransactions pulls transactions in [start, end] and reports the total
// count Plaid has for the range alongside the page returned.
func FetchTransactions(env config.PlaidEnvironment, accessToken string, start, end time.Time, count int) ([]models.Transaction, int, error) {
	req := struct {
		ClientID    string `json:"client_id"`
		Secret      string `json:"secret"`
		AccessToken string `json:"access_token"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Options     struct {
			Count int `json:"count"`
		} `json:"options"`
	}{
		ClientID:    env.ClientID,
		Secret:      env.Secret,
		AccessToken: accessToken,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
	}
	req.Options.Count = count

	var out struct {
		Transactions      []plaidTransaction `json:"transactions"`
		TotalTransactions int                `json:"total_transactions"`
	}
	if err := callPlaid(env, "/transactions/get", req, &out); err != nil {
		return nil, 0, err
	}

	txns := make([]models.Transaction, 0, len(out.Transactions))
	for _, t := range out.Transactions {
		txns = append(txns, models.Transaction{
			TransactionID:   t.TransactionID,
			AccountID:       t.AccountID,
			Name:            t.Name,
			MerchantName:    t.MerchantName,
			Amount:          t.Amount,
			ISOCurrencyCode: t.ISOCurrencyCode,
			Date:            t.Date,
			Category:        t.Category,
			Pending:         t.Pending,
		})
	}
	return txns, out.TotalTransactions, nil
}
