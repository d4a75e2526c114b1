package handlers

import (
	"bankfeed/db"
	"bankfeed/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListPlaidItems returns the session user's linked bank connections.
// Access tokens never leave the server.
func ListPlaidItems(c *gin.Context) {
	userID := c.GetString("userID")

	rows, err := db.GetDB().Query(`
		SELECT id, user_id, item_id, institution_name, needs_update, created_at
		FROM plaid_items
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}
	defer rows.Close()

	items := []models.PlaidItem{}
	for rows.Next() {
		var item models.PlaidItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemID, &item.InstitutionName, &item.NeedsUpdate, &item.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read items"})
			return
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UnlinkPlaidItem deletes one of the caller's connections. Owner
// scoping lives in the WHERE clause.
func UnlinkPlaidItem(c *gin.Context) {
	itemID := c.Param("id")
	userID := c.GetString("userID")

	res, err := db.GetDB().Exec(
		`DELETE FROM plaid_items WHERE id = $1 AND user_id = $2`, itemID, userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unlink item"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
