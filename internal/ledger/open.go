package ledger

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/autopo-labels/internal/cache"
	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/internal/storage"
)

// Open builds the ledger selected by cfg.Ledger.Backend. A non-nil redis
// client is reused for the redis backend; otherwise one is created.
func Open(cfg *config.Config, redisClient *redis.Client) (*LineLedger, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerFile:
		return New(NewFileStore(cfg.Ledger.FilePath)), nil
	case config.LedgerS3:
		objects, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Ledger.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 ledger: %w", err)
		}
		return New(NewObjectStore(objects, cfg.Ledger.Object)), nil
	case config.LedgerRedis:
		if redisClient == nil {
			client, err := cache.NewRedisClient(cfg.Cache)
			if err != nil {
				return nil, fmt.Errorf("open redis ledger: %w", err)
			}
			redisClient = client
		}
		return New(NewRedisStore(redisClient, cfg.Ledger.RedisKey)), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
