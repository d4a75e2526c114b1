package handlers

import (
	"bankfeed/db"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PlaidWebhookRequest struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

// itemTroubleCodes are ITEM webhook codes that mean the stored access
// token will stop working until the user re-links.
var itemTroubleCodes = map[string]bool{
	"ERROR":                   true,
	"PENDING_EXPIRATION":      true,
	"USER_PERMISSION_REVOKED": true,
}

// PlaidWebhook receives item lifecycle notifications from Plaid. It
// acknowledges everything quickly; Plaid retries on anything else, and
// unknown shapes are not our caller's problem.
func PlaidWebhook(c *gin.Context) {
	var req PlaidWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusOK)
		return
	}

	log.Printf("[webhook] %s/%s item=%s", req.WebhookType, req.WebhookCode, req.ItemID)

	if req.WebhookType == "ITEM" && itemTroubleCodes[req.WebhookCode] && req.ItemID != "" {
		if _, err := db.GetDB().Exec(
			`UPDATE plaid_items SET needs_update = TRUE WHERE item_id = $1`, req.ItemID,
		); err != nil {
			// Fail-open: the flag is advisory, the ack is not.
			log.Printf("[webhook] failed to flag item %s: %v", req.ItemID, err)
		}
	}

	c.Status(http.StatusOK)
}
