package entity

import "time"

// Audit actions
const (
	ActionRegister    = "register"
	ActionVerifyEmail = "verify_email"
	ActionReVerify    = "re_verify"
	ActionLogin       = "login"
	ActionLogout      = "logout"
)

// AuditEvent records one account lifecycle step.
// It must never carry a password, password hash, or token.
type AuditEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}
