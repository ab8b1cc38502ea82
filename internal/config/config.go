// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Recipients RecipientConfig
	Mail       MailConfig
	Ledger     LedgerConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Label      LabelConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type RecipientConfig struct {
	WMSSender        string
	SenderCaseFold   bool
	Sender           string
	Supplier         string
	Admin            string
	Purchasing       string
	GoodsIn          string
	VerificationMode bool
}

type MailConfig struct {
	Transport            string
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	GmailCredentialsJSON string
}

type LedgerConfig struct {
	Backend  string
	FilePath string
	Bucket   string
	Object   string
	RedisKey string
	FailOpen bool
}

// StorageConfig holds S3-compatible object storage settings.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type CacheConfig struct {
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	InflightGuard      bool
	InflightTTLSeconds int
}

type LabelConfig struct {
	Symbology string
	Workers   int
}

const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"

	LedgerFile  = "file"
	LedgerS3    = "s3"
	LedgerRedis = "redis"
)

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		setDefaults(v)
		v.AutomaticEnv()
		// KAPS_EMAIL is the historical name of the supplier mailbox
		_ = v.BindEnv("SUPPLIER_EMAIL", "SUPPLIER_EMAIL", "KAPS_EMAIL")

		instance = fromViper(v)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{})
	v.SetDefault("EMAIL_VERIFICATION_MODE", "true")
	v.SetDefault("WMS_SENDER_CASE_FOLD", "false")
	v.SetDefault("MAIL_TRANSPORT", TransportSMTP)
	v.SetDefault("SMTP_HOST", "smtp.test.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("LEDGER_BACKEND", LedgerFile)
	v.SetDefault("LEDGER_FILE_PATH", "./data/processed_pos.log")
	v.SetDefault("LEDGER_BUCKET", "completed-purchase-orders")
	v.SetDefault("LEDGER_OBJECT", "processed_pos.log")
	v.SetDefault("LEDGER_REDIS_KEY", "ledger:processed_pos")
	v.SetDefault("LEDGER_FAIL_OPEN", "false")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", "true")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("INFLIGHT_GUARD_ENABLED", "false")
	v.SetDefault("INFLIGHT_TTL_SECONDS", 300)
	v.SetDefault("LABEL_SYMBOLOGY", "qr")
	v.SetDefault("RENDER_WORKERS", 4)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Recipients: RecipientConfig{
			WMSSender:        strings.TrimSpace(v.GetString("WMS_SENDER_EMAIL")),
			SenderCaseFold:   ParseFlag(v.GetString("WMS_SENDER_CASE_FOLD"), false),
			Sender:           strings.TrimSpace(v.GetString("SENDER_EMAIL")),
			Supplier:         strings.TrimSpace(v.GetString("SUPPLIER_EMAIL")),
			Admin:            strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
			Purchasing:       strings.TrimSpace(v.GetString("PURCHASING_EMAIL")),
			GoodsIn:          strings.TrimSpace(v.GetString("GOODS_IN_EMAIL")),
			VerificationMode: ParseFlag(v.GetString("EMAIL_VERIFICATION_MODE"), true),
		},
		Mail: MailConfig{
			Transport:            strings.ToLower(v.GetString("MAIL_TRANSPORT")),
			SMTPHost:             v.GetString("SMTP_HOST"),
			SMTPPort:             v.GetInt("SMTP_PORT"),
			SMTPUsername:         v.GetString("SMTP_USERNAME"),
			SMTPPassword:         v.GetString("SMTP_PASSWORD"),
			GmailCredentialsJSON: v.GetString("GMAIL_CREDENTIALS_JSON"),
		},
		Ledger: LedgerConfig{
			Backend:  strings.ToLower(v.GetString("LEDGER_BACKEND")),
			FilePath: v.GetString("LEDGER_FILE_PATH"),
			Bucket:   v.GetString("LEDGER_BUCKET"),
			Object:   v.GetString("LEDGER_OBJECT"),
			RedisKey: v.GetString("LEDGER_REDIS_KEY"),
			FailOpen: ParseFlag(v.GetString("LEDGER_FAIL_OPEN"), false),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    ParseFlag(v.GetString("S3_USE_SSL"), true),
		},
		Cache: CacheConfig{
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			InflightGuard:      ParseFlag(v.GetString("INFLIGHT_GUARD_ENABLED"), false),
			InflightTTLSeconds: v.GetInt("INFLIGHT_TTL_SECONDS"),
		},
		Label: LabelConfig{
			Symbology: strings.ToLower(v.GetString("LABEL_SYMBOLOGY")),
			Workers:   v.GetInt("RENDER_WORKERS"),
		},
	}
}

// ParseFlag interprets true/1/yes/on and false/0/no/off; anything else
// (including empty) yields def.
func ParseFlag(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	required := map[string]string{
		"WMS_SENDER_EMAIL": c.Recipients.WMSSender,
		"SENDER_EMAIL":     c.Recipients.Sender,
		"SUPPLIER_EMAIL":   c.Recipients.Supplier,
		"ADMIN_EMAIL":      c.Recipients.Admin,
	}
	for _, key := range []string{"WMS_SENDER_EMAIL", "SENDER_EMAIL", "SUPPLIER_EMAIL", "ADMIN_EMAIL"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	switch c.Mail.Transport {
	case TransportSMTP:
		if c.Mail.SMTPUsername != "" && c.Mail.SMTPPassword == "" {
			errs = append(errs, errors.New("SMTP_PASSWORD must be set when SMTP_USERNAME is provided"))
		}
		if c.Mail.SMTPPassword != "" && c.Mail.SMTPUsername == "" {
			errs = append(errs, errors.New("SMTP_USERNAME must be set when SMTP_PASSWORD is provided"))
		}
	case TransportGmail:
		if strings.TrimSpace(c.Mail.GmailCredentialsJSON) == "" {
			errs = append(errs, errors.New("GMAIL_CREDENTIALS_JSON is required for the gmail transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_TRANSPORT %q", c.Mail.Transport))
	}

	switch c.Ledger.Backend {
	case LedgerFile:
		if c.Ledger.FilePath == "" {
			errs = append(errs, errors.New("LEDGER_FILE_PATH is required for the file ledger"))
		}
	case LedgerS3:
		if c.Storage.Endpoint == "" || c.Ledger.Bucket == "" || c.Ledger.Object == "" {
			errs = append(errs, errors.New("S3_ENDPOINT, LEDGER_BUCKET and LEDGER_OBJECT are required for the s3 ledger"))
		}
	case LedgerRedis:
		if c.Ledger.RedisKey == "" {
			errs = append(errs, errors.New("LEDGER_REDIS_KEY is required for the redis ledger"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}

	switch c.Label.Symbology {
	case "qr", "code128":
	default:
		errs = append(errs, fmt.Errorf("unknown LABEL_SYMBOLOGY %q", c.Label.Symbology))
	}

	return errors.Join(errs...)
}
