package handlers

import (
	"bankfeed/db"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Read-only overview counts for the admin dashboard
func GetAdminStats(c *gin.Context) {
	var stats struct {
		TotalUsers         int `json:"total_users"`
		PendingUsers       int `json:"pending_users"`
		ApprovedUsers      int `json:"approved_users"`
		RejectedUsers      int `json:"rejected_users"`
		TestUsers          int `json:"test_users"`
		LinkedItems        int `json:"linked_items"`
		ItemsNeedingUpdate int `json:"items_needing_update"`
	}

	dbConn := db.GetDB()

	// 1. User counts by approval state
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM profiles").Scan(&stats.TotalUsers)
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM profiles WHERE approval_status = 'pending'").Scan(&stats.PendingUsers)
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM profiles WHERE approval_status = 'approved'").Scan(&stats.ApprovedUsers)
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM profiles WHERE approval_status = 'rejected'").Scan(&stats.RejectedUsers)
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM profiles WHERE is_test_user = TRUE").Scan(&stats.TestUsers)

	// 2. Bank connection counts
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM plaid_items").Scan(&stats.LinkedItems)
	_ = dbConn.QueryRow("SELECT COUNT(*) FROM plaid_items WHERE needs_update = TRUE").Scan(&stats.ItemsNeedingUpdate)

	c.JSON(http.StatusOK, stats)
}
