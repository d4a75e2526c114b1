package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// NotifySignupSlack pings the admin Slack channel about a signup waiting for
// approval. Fire-and-forget: callers run this in a goroutine, so the webhook
// URL comes in as an argument instead of being read from shared config here.
func NotifySignupSlack(webhookURL, email, displayName string) {
	// Safety: recover from any panic to avoid taking down the request path
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[slack] panic recovered: %v\n", r)
		}
	}()

	if webhookURL == "" {
		fmt.Println("[slack] skipped: no webhook URL configured")
		return
	}

	name := displayName
	if name == "" {
		name = "(no display name)"
	}

	payload := map[string]string{
		"text": fmt.Sprintf("New signup awaiting approval\n\nName: %s\nEmail: %s", name, email),
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		fmt.Printf("[slack] marshal payload: %v\n", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonPayload))
	if err != nil {
		fmt.Printf("[slack] send failed: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		fmt.Printf("[slack] webhook error: status %d\n", resp.StatusCode)
	}
}
