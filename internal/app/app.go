// Package app wires configuration into a ready OrderProcessor.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/autopo-labels/internal/cache"
	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/internal/label"
	"github.com/andresuchdata/autopo-labels/internal/ledger"
	"github.com/andresuchdata/autopo-labels/internal/mail"
	"github.com/andresuchdata/autopo-labels/internal/recipient"
	"github.com/andresuchdata/autopo-labels/internal/service"
	"github.com/andresuchdata/autopo-labels/pkg/logger"
)

// Components are the long-lived collaborators built from configuration.
type Components struct {
	Processor *service.OrderProcessor
	Ledger    *ledger.LineLedger
	Renderer  *label.Renderer
	redis     *redis.Client
}

// Close releases network clients.
func (c *Components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// NewRenderer builds the label renderer from cfg.Label.
func NewRenderer(cfg *config.Config) (*label.Renderer, error) {
	return label.NewRenderer(label.Options{
		Symbology: label.Symbology(cfg.Label.Symbology),
		Workers:   cfg.Label.Workers,
	})
}

// NewTransport builds the mail transport selected by cfg.Mail.Transport.
func NewTransport(ctx context.Context, cfg *config.Config) (mail.Transport, error) {
	switch cfg.Mail.Transport {
	case config.TransportSMTP:
		return mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
		})
	case config.TransportGmail:
		return mail.NewGmailTransport(ctx, cfg.Mail.GmailCredentialsJSON, cfg.Recipients.Sender)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
	}
}

// NewLedger opens the configured ledger only, for read-mostly tools.
func NewLedger(cfg *config.Config) (*ledger.LineLedger, func() error, error) {
	if cfg.Ledger.Backend != config.LedgerRedis {
		l, err := ledger.Open(cfg, nil)
		return l, func() error { return nil }, err
	}
	client, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Open(cfg, client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return l, client.Close, nil
}

// New builds every component. The caller must Close the result.
func New(ctx context.Context, cfg *config.Config) (*Components, error) {
	c := &Components{}

	if cfg.Ledger.Backend == config.LedgerRedis || cfg.Cache.InflightGuard {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			return nil, err
		}
		c.redis = client
	}

	l, err := ledger.Open(cfg, c.redis)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Ledger = l

	renderer, err := NewRenderer(cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Renderer = renderer

	transport, err := NewTransport(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	dispatcher := mail.NewDispatcher(cfg.Recipients.Sender, transport, logger.Component("mail"))

	guard := cache.NewNoopInflightGuard()
	if cfg.Cache.InflightGuard {
		guard = cache.NewInflightGuard(c.redis, time.Duration(cfg.Cache.InflightTTLSeconds)*time.Second)
	}

	c.Processor = service.NewOrderProcessor(ProcessorConfig(cfg), renderer, l, dispatcher, guard, logger.Component("processor"))
	return c, nil
}

// ProcessorConfig extracts the processor settings from cfg.
func ProcessorConfig(cfg *config.Config) service.ProcessorConfig {
	return service.ProcessorConfig{
		WMSSender:      cfg.Recipients.WMSSender,
		SenderCaseFold: cfg.Recipients.SenderCaseFold,
		Mailboxes: recipient.Mailboxes{
			Supplier:   cfg.Recipients.Supplier,
			Purchasing: cfg.Recipients.Purchasing,
			GoodsIn:    cfg.Recipients.GoodsIn,
			Admin:      cfg.Recipients.Admin,
		},
		VerificationMode: cfg.Recipients.VerificationMode,
		LedgerFailOpen:   cfg.Ledger.FailOpen,
	}
}
