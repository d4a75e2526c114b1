package services

import (
	"fmt"

	"github.com/google/uuid"

	"bankfeed/config"
	"bankfeed/db"
)

// RecordAudit appends one row to the admin audit trail. Failures are logged
// and swallowed: the audit write must never change the outcome of the action
// it describes.
func RecordAudit(actorID, action, targetID, detail string) {
	if !config.LoadFeatures().AuditEnabled {
		return
	}

	_, err := db.GetDB().Exec(`
		INSERT INTO audit_log (id, actor_id, action, target_id, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), actorID, action, targetID, detail)

	if err != nil {
		fmt.Printf("[audit] record failed (%s): %v\n", action, err)
	}
}
