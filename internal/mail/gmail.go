package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"gopkg.in/gomail.v2"
)

// GmailTransport sends through the Gmail API using a service account with
// domain-wide delegation, impersonating the sender mailbox.
type GmailTransport struct {
	srv *gmail.Service
}

func NewGmailTransport(ctx context.Context, credentialsJSON, sender string) (*GmailTransport, error) {
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse gmail service account: %w", err)
	}
	config.Subject = sender

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail client: %w", err)
	}

	return &GmailTransport{srv: srv}, nil
}

func (t *GmailTransport) Send(ctx context.Context, msg *gomail.Message) error {
	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	_, err := t.srv.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
