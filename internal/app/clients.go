package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/trainforge-backend/internal/data/scormcache"
	"github.com/yungbote/trainforge-backend/internal/platform/gcp"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

type Clients struct {
	// Redis is nil when REDIS_ADDR is unset.
	Redis *goredis.Client
	// Bucket is nil when no media bucket is configured.
	Bucket gcp.BucketService
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := scormcache.NewClient(ctx, cfg.cacheConfig())
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR not set; SCORM attempts are read straight from the database")
	}

	// Gcs
	if strings.TrimSpace(cfg.Storage.MediaBucket) != "" {
		bcfg, err := cfg.bucketConfig()
		if err != nil {
			return Clients{}, fmt.Errorf("object storage config: %w", err)
		}
		bucket, err := gcp.NewBucketService(log, bcfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		out.Bucket = bucket
	} else {
		log.Warn("MEDIA_GCS_BUCKET_NAME not set; uploads are disabled")
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
