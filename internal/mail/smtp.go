package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP relay settings. Authentication is used only when a
// username is configured; STARTTLS is negotiated when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPTransport sends through an SMTP relay.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host must be provided")
	}
	if cfg.Username != "" && cfg.Password == "" {
		return nil, fmt.Errorf("smtp password must be set when username is provided")
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, fmt.Errorf("smtp username must be set when password is provided")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	return &SMTPTransport{
		dialer: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
	}, nil
}

// Send dials, sends and closes. gomail has no context support, so a
// cancelled ctx abandons the wait but not the connection attempt.
func (t *SMTPTransport) Send(ctx context.Context, msg *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp %s:%d: %w", t.dialer.Host, t.dialer.Port, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
