package handlers

import (
	"bankfeed/config"
	"bankfeed/db"
	"bankfeed/models"
	"bankfeed/services"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultDaysBack        = 30
	defaultMaxTransactions = 100
	maxTransactionsCap     = 500
	retryWindowDays        = 730
)

type LinkTokenInput struct {
	UserID      string `json:"userId" binding:"required"`
	AccessToken string `json:"accessToken"`
}

type ExchangeInput struct {
	PublicToken     string `json:"publicToken" binding:"required"`
	InstitutionName string `json:"institutionName"`
}

type FetchDataInput struct {
	AccessToken     string `json:"accessToken" binding:"required"`
	DaysBack        int    `json:"daysBack"`
	MaxTransactions int    `json:"maxTransactions"`
}

// CreateLinkToken mints a Plaid Link token for the browser widget.
// Test users are routed to the sandbox environment, everyone else to
// production. An accessToken in the body switches Link to update mode
// for re-authenticating an existing item.
func CreateLinkToken(c *gin.Context) {
	var input LinkTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	var isTest bool
	if err := db.GetDB().QueryRow(
		`SELECT is_test_user FROM profiles WHERE id = $1`, input.UserID,
	).Scan(&isTest); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	env := config.Get().Plaid.ForTestUser(isTest)
	if !env.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plaid credentials not configured"})
		return
	}

	linkToken, err := services.CreateLinkToken(env, input.UserID, input.AccessToken)
	if err != nil {
		plaidErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"link_token": linkToken})
}

// ExchangeToken swaps a Link public token for a permanent access token
// and records the resulting item for the session user.
func ExchangeToken(c *gin.Context) {
	var input ExchangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publicToken is required"})
		return
	}

	env := config.Get().Plaid.ForToken(input.PublicToken)
	if !env.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plaid credentials not configured"})
		return
	}

	result, err := services.ExchangePublicToken(env, input.PublicToken)
	if err != nil {
		plaidErrorResponse(c, err)
		return
	}

	// Persistence is best-effort: the caller gets the exchange result
	// even when the insert fails.
	userID := c.GetString("userID")
	if _, err := db.GetDB().Exec(
		`INSERT INTO plaid_items (id, user_id, access_token, item_id, institution_name)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (item_id) DO UPDATE SET access_token = EXCLUDED.access_token, needs_update = FALSE`,
		uuid.NewString(), userID, result.AccessToken, result.ItemID, input.InstitutionName,
	); err != nil {
		log.Printf("[plaid] failed to persist item %s: %v", result.ItemID, err)
	}

	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken, "item_id": result.ItemID})
}

// FetchData pulls balances and recent transactions for one item in a
// single round trip. Accounts are mandatory; transactions degrade to a
// partial result when Plaid cannot serve them.
func FetchData(c *gin.Context) {
	var input FetchDataInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}

	daysBack := input.DaysBack
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}
	maxTx := input.MaxTransactions
	if maxTx <= 0 {
		maxTx = defaultMaxTransactions
	}
	if maxTx > maxTransactionsCap {
		maxTx = maxTransactionsCap
	}

	env := config.Get().Plaid.ForToken(input.AccessToken)
	if !env.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plaid credentials not configured"})
		return
	}

	accounts, err := services.FetchAccounts(env, input.AccessToken)
	if err != nil {
		plaidErrorResponse(c, err)
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -daysBack)

	transactions, total, txErr := services.FetchTransactions(env, input.AccessToken, start, end, maxTx)
	retried := false
	if txErr != nil {
		// Some institutions reject short windows while their initial
		// pull is still running; one widened retry covers them.
		retried = true
		start = end.AddDate(0, 0, -retryWindowDays)
		transactions, total, txErr = services.FetchTransactions(env, input.AccessToken, start, end, maxTx)
	}

	metadata := gin.H{
		"environment":        env.Name,
		"account_count":      len(accounts),
		"transaction_count":  len(transactions),
		"total_transactions": total,
		"start_date":         start.Format("2006-01-02"),
		"end_date":           end.Format("2006-01-02"),
		"retried":            retried,
		"summary":            services.SummarizeBalances(accounts),
	}

	if txErr != nil {
		// Partial success: accounts still go back to the caller.
		transactions = []models.Transaction{}
		metadata["transactions_error"] = friendlyPlaidMessage(txErr)
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts":     accounts,
		"transactions": transactions,
		"metadata":     metadata,
	})
}

// plaidErrorResponse maps an upstream failure onto the client response,
// passing Plaid's own status through where we have one.
func plaidErrorResponse(c *gin.Context, err error) {
	var perr *services.PlaidError
	if errors.As(err, &perr) {
		status := perr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		if perr.ErrorCode == "" {
			// Body we could not decode: pass it through as-is, keeping the
			// upstream content type so an HTML error page stays HTML.
			if perr.RawBody != "" {
				contentType := perr.ContentType
				if contentType == "" {
					contentType = "text/plain; charset=utf-8"
				}
				c.Data(status, contentType, []byte(perr.RawBody))
			} else {
				c.JSON(status, gin.H{"error": perr.Error()})
			}
			return
		}
		c.JSON(status, gin.H{
			"error":   perr.FriendlyMessage(),
			"message": perr.ErrorMessage,
			"details": gin.H{
				"error_type": perr.ErrorType,
				"error_code": perr.ErrorCode,
				"request_id": perr.RequestID,
			},
		})
		return
	}

	log.Printf("[plaid] upstream call failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach Plaid"})
}

func friendlyPlaidMessage(err error) string {
	var perr *services.PlaidError
	if errors.As(err, &perr) {
		return perr.FriendlyMessage()
	}
	return err.Error()
}
