package bootstrap

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/memory"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/redis"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/sqlite"
	"github.com/ravindran79-arch/smartbid-compliance/config"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// Stores holds the persistence adapters selected by configuration.
type Stores struct {
	Usage   ports.UsageStore
	Reports ports.ReportStore

	db    *sqlite.DB
	redis *goredis.Client
}

// OpenStores opens the database named by database.driver and, when
// usage.backend is redis, a Redis connection for usage records.
// Reports always live in the database.
func OpenStores(ctx context.Context, cfg *config.Config, clk ports.Clock, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Database.Driver {
	case "memory":
		s.Usage = memory.NewUsageStore(memory.UsageStoreConfig{Clock: clk})
		s.Reports = memory.NewReportStore()
		logger.Warn().Msg("using in-memory stores, data is lost on restart")

	case "sqlite":
		db, err := sqlite.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s.db = db
		s.Usage = sqlite.NewUsageStore(db, cfg.Usage.Namespace).WithClock(clk)
		s.Reports = sqlite.NewReportStore(db, cfg.Usage.Namespace)
		logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if cfg.Usage.Backend == "redis" {
		client, err := redis.Dial(ctx, cfg.Usage.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.redis = client
		s.Usage = redis.NewUsageStore(client, cfg.Usage.Namespace, redis.WithClock(clk))
		logger.Info().Str("namespace", cfg.Usage.Namespace).Msg("usage records stored in redis")
	}

	return s, nil
}

// Close releases database and Redis connections.
func (s *Stores) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
		s.redis = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		s.db = nil
	}
	return errors.Join(errs...)
}
