package config

import "os"

type Features struct {
	SignupEnabled bool
	EmailEnabled  bool
	AuditEnabled  bool
}

func LoadFeatures() Features {
	return Features{
		// Signup and audit default on; set to "false" for closed-beta mode or
		// to silence the audit trail. Email needs SendGrid config anyway, so
		// it defaults off.
		SignupEnabled: os.Getenv("SIGNUP_ENABLED") != "false",
		EmailEnabled:  os.Getenv("EMAIL_ENABLED") == "true",
		AuditEnabled:  os.Getenv("AUDIT_ENABLED") != "false",
	}
}
