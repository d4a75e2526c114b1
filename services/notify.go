package services

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"bankfeed/config"
	"bankfeed/models"
)

// SendDecisionEmail tells a user their account was approved or rejected.
// Best effort: the approval update has already been committed by the time
// this runs, and a mail failure must not surface to the admin. Callers run
// this in a goroutine and hand over the config they resolved on the request
// path, so nothing here reads shared state.
func SendDecisionEmail(cfg config.Config, toEmail, displayName, status string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[mail] panic recovered: %v\n", r)
		}
	}()

	if cfg.SendGridKey == "" || cfg.FromEmail == "" {
		fmt.Println("[mail] skipped: SendGrid not configured")
		return
	}
	if toEmail == "" {
		fmt.Println("[mail] skipped: user has no email on file")
		return
	}

	name := displayName
	if name == "" {
		name = "there"
	}

	var subject, body string
	if status == models.StatusApproved {
		subject = "Your Bankfeed account has been approved"
		body = fmt.Sprintf(`Hi %s,

Good news: your account has been approved. You can now sign in and link
your bank accounts.

- The Bankfeed team`, name)
	} else {
		subject = "Update on your Bankfeed account"
		body = fmt.Sprintf(`Hi %s,

We reviewed your signup and are unable to approve your account at this
time. Reply to this email if you believe this is a mistake.

- The Bankfeed team`, name)
	}

	from := mail.NewEmail("Bankfeed", cfg.FromEmail)
	to := mail.NewEmail(name, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)
	client := sendgrid.NewSendClient(cfg.SendGridKey)

	response, err := client.Send(message)
	if err != nil {
		fmt.Printf("[mail] send failed: %v\n", err)
	} else {
		fmt.Printf("[mail] decision email sent (status %d)\n", response.StatusCode)
	}
}
