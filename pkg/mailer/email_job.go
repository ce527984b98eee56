package mailer

// EmailJob is the unit of work handed to a Notifier, and the JSON payload put on
// the RabbitMQ queue. Either Template (+Data) or Subject with Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "verify_email", "security_alert"
	Data     map[string]any `json:"data,omitempty"`
}
