package templates

import (
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04 MST") }
}

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) { d.ExpiresAtText = t.UTC().Format("02 January 2006, 15:04 MST") }
}

func newEmailData(appName, email string, opts ...Option) EmailData {
	d := EmailData{AppName: appName, Email: email}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewVerifyEmailData builds the data for the verify_email template.
func NewVerifyEmailData(appName, name, email, verifyURL string, opts ...Option) map[string]any {
	d := newEmailData(appName, email, opts...)
	d.Name = name
	d.VerifyURL = verifyURL
	return ToMap(d)
}

// NewSecurityAlertData builds the data for the security_alert template.
func NewSecurityAlertData(appName, email string, opts ...Option) map[string]any {
	return ToMap(newEmailData(appName, email, opts...))
}
