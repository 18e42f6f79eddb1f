package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/database"
	"github.com/gowiki/gowiki/internal/storage"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
	"github.com/gowiki/gowiki/pkg/logger"
)

// Backend is an opened persistence backend plus the connections it holds.
type Backend struct {
	Adapter persistence.Adapter
	Mongo   *mongo.Database // set for the mongo backend
	closers []func(context.Context) error
}

// Close releases every connection opened for the backend.
func (b *Backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warnf("closing storage backend: %v", err)
		}
	}
}

// OpenBackend connects the configured storage backend and wraps its adapter
// with metrics and retries. rdb is reused for the redis backend when non-nil.
func OpenBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*Backend, error) {
	b := &Backend{}
	var raw persistence.Adapter

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warnf("using in-memory storage; pages are lost on restart")
		raw = persistence.NewMemoryAdapter()

	case config.BackendMongo:
		client, err := connectMongoWithRetry(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(ctx context.Context) error { return client.Disconnect(ctx) })
		b.Mongo = client.Database(cfg.MongoDB.Database)
		raw = persistence.NewMongoAdapter(b.Mongo.Collection(database.RecordsCollection))

	case config.BackendRedis:
		if rdb == nil {
			var err error
			rdb, err = database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return nil, err
			}
			b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })
		}
		raw = persistence.NewRedisAdapter(rdb, cfg.Redis.Key("record:"))

	case config.BackendMinIO:
		st, err := storage.NewMinIOStorage(&storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
			Prefix:    "wiki/",
		})
		if err != nil {
			return nil, err
		}
		raw = persistence.NewObjectAdapter(st)

	case config.BackendSQLite, config.BackendPostgres:
		driver, dialect := "postgres", persistence.Postgres
		if cfg.Storage.Backend == config.BackendSQLite {
			driver, dialect = "sqlite3", persistence.SQLite
			if dir := filepath.Dir(cfg.SQL.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create sqlite directory: %w", err)
				}
			}
		}
		db, err := database.OpenSQL(driver, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })
		a, err := persistence.NewSQLAdapter(ctx, db, dialect)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		raw = a

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	b.Adapter = persistence.WithRetry(persistence.Instrument(cfg.Storage.Backend, raw), cfg.Storage.RetryAttempts, cfg.Storage.RetryBackoff)
	logger.Infof("storage backend %s ready", cfg.Storage.Backend)
	return b, nil
}

// connectMongoWithRetry tolerates startup races with the database container.
func connectMongoWithRetry(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	const maxAttempts = 5
	backoff := time.Second
	var errConn error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			return client, nil
		}
		errConn = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, errConn)
}
