package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender relays mail through an SMTP server: implicit TLS on 465,
// opportunistic STARTTLS otherwise, PLAIN auth when a username is set.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration

	// send dials and delivers msg; replaced in tests.
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	s := &SMTPSender{Host: host, Port: port, Username: username, Password: password, From: from, Timeout: smtpTimeout}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, text, html string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	msg, err := buildMsg(s.From, to, subject, text, html)
	if err != nil {
		return err
	}
	send := s.send
	if send == nil {
		send = s.dialAndSend
	}
	return send(ctx, msg)
}

func (s *SMTPSender) options() []mail.Option {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = smtpTimeout
	}
	opts := []mail.Option{mail.WithPort(s.Port), mail.WithTimeout(timeout)}
	if s.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	return opts
}

func (s *SMTPSender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMsg assembles the message; with both bodies present it is multipart/alternative.
func buildMsg(from, to, subject, text, html string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("smtp from %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetDate()

	switch {
	case text != "" && html != "":
		msg.SetBodyString(mail.TypeTextPlain, text)
		msg.AddAlternativeString(mail.TypeTextHTML, html)
	case html != "":
		msg.SetBodyString(mail.TypeTextHTML, html)
	default:
		msg.SetBodyString(mail.TypeTextPlain, text)
	}
	return msg, nil
}
