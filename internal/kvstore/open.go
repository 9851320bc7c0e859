package kvstore

import (
	"context"
	"fmt"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/secrets"
)

// Open builds the backend named by cfg.StoreDriver and probes it. A backend
// that cannot be constructed at all is an error; one that constructs but fails
// the probe yields a disabled adapter.
func Open(ctx context.Context, cfg *config.Config) (*Adapter, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.StoreDriver {
	case "memory":
		b = NewMemory(cfg.StoreQuotaBytes)
	case "sqlite", "":
		b, err = NewSQLite(cfg.StorePath)
	case "postgres":
		if err := secrets.ValidateRequired(map[string]string{"DATABASE_URL": cfg.DatabaseURL}); err != nil {
			return nil, err
		}
		logger.Info("connecting to postgres store", "url", secrets.MaskURL(cfg.DatabaseURL))
		b, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "redis":
		if err := secrets.ValidateRequired(map[string]string{"REDIS_URL": cfg.RedisURL}); err != nil {
			return nil, err
		}
		logger.Info("connecting to redis store", "url", secrets.MaskURL(cfg.RedisURL))
		b, err = NewRedis(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("kvstore: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return New(ctx, b), nil
}
