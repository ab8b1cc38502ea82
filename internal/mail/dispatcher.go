// Package mail composes and sends purchase order emails.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/andresuchdata/autopo-labels/internal/domain"
)

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, msg *gomail.Message) error
}

// Dispatcher sends archives and alerts from a fixed sender address.
type Dispatcher struct {
	from      string
	transport Transport
	log       zerolog.Logger
}

func NewDispatcher(from string, transport Transport, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		from:      from,
		transport: transport,
		log:       log,
	}
}

// BuildSubject returns the subject line for a purchase order dispatch.
func BuildSubject(poID string) string {
	return "Barcodes for PO " + poID
}

// BuildBody returns the plain-text body for a purchase order dispatch.
func BuildBody(poID string) string {
	return "Please find attached the barcodes for purchase order " + poID + "."
}

// Send delivers one message to rs. A nil attachment sends a plain message.
func (d *Dispatcher) Send(ctx context.Context, rs domain.RecipientSet, subject, body string, attachment *domain.Archive) error {
	if len(rs.To) == 0 {
		return fmt.Errorf("%w: no recipients", domain.ErrDispatch)
	}

	msg := Compose(d.from, rs, subject, body, attachment)

	d.log.Info().
		Strs("recipients", envelope(msg)).
		Str("subject", subject).
		Msg("sending email")

	if err := d.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDispatch, err)
	}
	return nil
}

// Compose builds the MIME message.
func Compose(from string, rs domain.RecipientSet, subject, body string, attachment *domain.Archive) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", rs.To...)
	if len(rs.Cc) > 0 {
		msg.SetHeader("Cc", rs.Cc...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if attachment != nil {
		data := attachment.Data
		msg.Attach(attachment.Name,
			gomail.SetHeader(map[string][]string{
				"Content-Type": {`application/zip; name="` + attachment.Name + `"`},
			}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(data))
				return err
			}),
		)
	}
	return msg
}

// envelope lists every envelope recipient of msg.
func envelope(msg *gomail.Message) []string {
	var out []string
	for _, field := range []string{"To", "Cc", "Bcc"} {
		for _, addr := range msg.GetHeader(field) {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}
