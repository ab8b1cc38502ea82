package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/internal/mail"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Recipients: config.RecipientConfig{
			WMSSender:        "wms@example.com",
			Sender:           "noreply@example.com",
			Supplier:         "supplier@example.com",
			Admin:            "admin@example.com",
			Purchasing:       "purchasing@example.com",
			VerificationMode: true,
		},
		Mail: config.MailConfig{
			Transport: config.TransportSMTP,
			SMTPHost:  "smtp.example.com",
			SMTPPort:  2525,
		},
		Ledger: config.LedgerConfig{
			Backend:  config.LedgerFile,
			FilePath: filepath.Join(t.TempDir(), "processed_pos.log"),
			RedisKey: "ledger:processed_pos",
		},
		Label: config.LabelConfig{Symbology: "code128", Workers: 2},
	}
}

func TestProcessorConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.FailOpen = true

	pc := ProcessorConfig(cfg)
	assert.Equal(t, "wms@example.com", pc.WMSSender)
	assert.Equal(t, "supplier@example.com", pc.Mailboxes.Supplier)
	assert.Equal(t, "purchasing@example.com", pc.Mailboxes.Purchasing)
	assert.Equal(t, "admin@example.com", pc.Mailboxes.Admin)
	assert.True(t, pc.VerificationMode)
	assert.True(t, pc.LedgerFailOpen)
}

func TestNewWithFileLedger(t *testing.T) {
	c, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.Processor)
	assert.NotNil(t, c.Renderer)

	processed, err := c.Ledger.Contains(context.Background(), "UPD-PO100")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNewWithRedisLedgerAndGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Ledger.Backend = config.LedgerRedis
	cfg.Cache = config.CacheConfig{RedisURL: "redis://" + mr.Addr(), InflightGuard: true, InflightTTLSeconds: 60}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ledger.Append(context.Background(), "UPD-PO100"))
	list, err := mr.List("ledger:processed_pos")
	require.NoError(t, err)
	assert.Equal(t, []string{"UPD-PO100"}, list)
}

func TestNewTransport(t *testing.T) {
	cfg := testConfig(t)
	transport, err := NewTransport(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &mail.SMTPTransport{}, transport)

	cfg.Mail.Transport = "pigeon"
	_, err = NewTransport(context.Background(), cfg)
	assert.Error(t, err)

	cfg.Mail.Transport = config.TransportGmail
	cfg.Mail.GmailCredentialsJSON = "not json"
	_, err = NewTransport(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRejectsUnknownSymbology(t *testing.T) {
	cfg := testConfig(t)
	cfg.Label.Symbology = "pdf417"
	_, err := NewRenderer(cfg)
	assert.Error(t, err)
}
