package handlers

import (
	"bankfeed/config"
	"bankfeed/db"
	"bankfeed/models"
	"bankfeed/services"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// approvalDecisions is the set of states an admin may move a user to.
// "pending" is the initial state only; there is no path back to it.
var approvalDecisions = map[string]bool{
	models.StatusApproved: true,
	models.StatusRejected: true,
}

type ApprovalInput struct {
	Status string `json:"status" binding:"required"`
}

type DeleteUserInput struct {
	UserID string `json:"userId" binding:"required"`
}

func ListUsers(c *gin.Context) {
	rows, err := db.GetDB().Query(`
		SELECT id, display_name, approval_status, is_test_user, created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	defer rows.Close()

	users := []models.AdminUser{}
	for rows.Next() {
		var u models.AdminUser
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.ApprovalStatus, &u.IsTestUser, &u.CreatedAt, &u.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read users"})
			return
		}
		users = append(users, u)
	}

	attachEmails(users)

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// attachEmails fills in the email column from the users table. The
// admin list must still render when that lookup fails, so errors leave
// the field blank instead of failing the request.
func attachEmails(users []models.AdminUser) {
	rows, err := db.GetDB().Query(`SELECT id, email FROM users`)
	if err != nil {
		log.Printf("[admin] email lookup failed: %v", err)
		return
	}
	defer rows.Close()

	emails := make(map[string]string)
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			continue
		}
		emails[id] = email
	}

	for i := range users {
		users[i].Email = emails[users[i].ID]
	}
}

// SetApproval moves a user to approved or rejected. Either decision can
// be changed later by submitting the other one.
func SetApproval(c *gin.Context) {
	targetID := c.Param("id")

	var input ApprovalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !approvalDecisions[input.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be 'approved' or 'rejected'"})
		return
	}

	res, err := db.GetDB().Exec(
		`UPDATE profiles SET approval_status = $1, updated_at = NOW() WHERE id = $2`,
		input.Status, targetID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	actorID := c.GetString("userID")
	services.RecordAudit(actorID, models.ActionSetApproval, targetID, input.Status)

	if config.LoadFeatures().EmailEnabled {
		var email, displayName string
		err := db.GetDB().QueryRow(
			`SELECT u.email, p.display_name FROM users u JOIN profiles p ON p.id = u.id WHERE u.id = $1`,
			targetID,
		).Scan(&email, &displayName)
		if err == nil {
			go services.SendDecisionEmail(config.Get(), email, displayName, input.Status)
		} else {
			log.Printf("[admin] decision email lookup failed for %s: %v", targetID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": input.Status})
}

// DeleteUser removes an account and everything hanging off it. Admins
// cannot delete themselves.
func DeleteUser(c *gin.Context) {
	var input DeleteUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID := c.GetString("userID")
	if input.UserID == actorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Admins cannot delete their own account"})
		return
	}

	tx, err := db.GetDB().Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM plaid_items WHERE user_id = $1`,
		`DELETE FROM user_roles WHERE user_id = $1`,
		`DELETE FROM profiles WHERE id = $1`,
	} {
		if _, err := tx.Exec(q, input.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
	}

	res, err := tx.Exec(`DELETE FROM users WHERE id = $1`, input.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	services.RecordAudit(actorID, models.ActionDeleteUser, input.UserID, "")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func ListAudit(c *gin.Context) {
	rows, err := db.GetDB().Query(`
		SELECT id, actor_id, action, target_id, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT 100`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit log"})
		return
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit log"})
			return
		}
		entries = append(entries, e)
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
