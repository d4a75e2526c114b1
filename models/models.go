package models

import (
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Audit actions recorded by the admin workflow.
const (
	ActionAccessDenied = "admin.access_denied"
	ActionSetApproval  = "admin.set_approval"
	ActionDeleteUser   = "admin.delete_user"
)

// Profile is the per-user application record. Created on signup, mutated only
// by the approval action, deleted only through the delete workflow.
type Profile struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	ApprovalStatus string    `json:"approval_status"`
	IsTestUser     bool      `json:"is_test_user"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AdminUser is a profile augmented with the email held by the auth table.
// Email stays empty when the email lookup degrades.
type AdminUser struct {
	Profile
	Email string `json:"email,omitempty"`
}

// PlaidItem is one linked institution connection. The access token never
// leaves the server.
type PlaidItem struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	AccessToken     string    `json:"-"`
	ItemID          string    `json:"item_id"`
	InstitutionName string    `json:"institution_name,omitempty"`
	NeedsUpdate     bool      `json:"needs_update"`
	CreatedAt       time.Time `json:"created_at"`
}

// AccountBalances is the narrowed balance block passed through from Plaid.
type AccountBalances struct {
	Available       *float64 `json:"available"`
	Current         *float64 `json:"current"`
	ISOCurrencyCode string   `json:"iso_currency_code,omitempty"`
}

// Account is the narrowed account record returned to the client.
type Account struct {
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name"`
	OfficialName   string          `json:"official_name,omitempty"`
	Mask           string          `json:"mask,omitempty"`
	Type           string          `json:"type"`
	Subtype        string          `json:"subtype,omitempty"`
	Classification string          `json:"classification"`
	Balances       AccountBalances `json:"balances"`
}

// Transaction is the narrowed transaction record returned to the client.
type Transaction struct {
	TransactionID   string   `json:"transaction_id"`
	AccountID       string   `json:"account_id"`
	Name            string   `json:"name"`
	MerchantName    string   `json:"merchant_name,omitempty"`
	Amount          float64  `json:"amount"`
	ISOCurrencyCode string   `json:"iso_currency_code,omitempty"`
	Date            string   `json:"date"`
	Category        []string `json:"category,omitempty"`
	Pending         bool     `json:"pending"`
}

// AuditEntry is one row of the append-only admin audit trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
