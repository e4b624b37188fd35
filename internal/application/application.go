// Package application builds the runtime shared by the server and the
// operator CLI: database pool, job store, model registry, status cache,
// file storage, mailer, task queue and the core service.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/importexport/internal/cache"
	"github.com/JonMunkholm/importexport/internal/config"
	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/database"
	"github.com/JonMunkholm/importexport/internal/notify"
	"github.com/JonMunkholm/importexport/internal/queue"
	"github.com/JonMunkholm/importexport/internal/resource"
	"github.com/JonMunkholm/importexport/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the wired components. Call Close when done.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Service *core.Service
	Queue   *queue.Queue

	// Media serves locally stored files; nil for remote backends.
	Media http.Handler
}

// New connects to the database and wires every component from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	app, err := build(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*App, error) {
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return nil, err
		}
	}

	registry, err := resource.LoadFile(cfg.Jobs.ModelsFile)
	if err != nil {
		return nil, err
	}
	slog.Info("models registered", "count", registry.Len(), "models", registry.Names())

	statusCache, err := cache.New(cfg.Jobs.StatusCacheSize)
	if err != nil {
		return nil, err
	}

	files, media, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	mailer, err := NewMailer(cfg.Mail)
	if err != nil {
		return nil, err
	}

	store := database.NewStore(pool)
	q := queue.New(cfg.Jobs.Workers, cfg.Jobs.QueueSize)

	service, err := core.NewService(core.Deps{
		Jobs:        store,
		Records:     store,
		Registry:    registry,
		Files:       files,
		Cache:       statusCache,
		Mailer:      mailer,
		Scheduler:   q,
		ServerEmail: cfg.Mail.ServerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &App{
		Config:  cfg,
		Pool:    pool,
		Service: service,
		Queue:   q,
		Media:   media,
	}, nil
}

// Close releases the database pool. Stop the queue first.
func (a *App) Close() {
	a.Pool.Close()
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

// NewStorage selects the file storage backend. The returned handler is
// non-nil only for the local backend.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (core.FileStorage, http.Handler, error) {
	switch strings.ToLower(cfg.Backend) {
	case "s3":
		s, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Prefix:    cfg.S3Prefix,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("file storage ready", "backend", "s3", "bucket", cfg.S3Bucket)
		return s, nil, nil
	case "local", "":
		l, err := storage.NewLocal(cfg.LocalDir, cfg.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("file storage ready", "backend", "local", "dir", cfg.LocalDir)
		return l, l.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewMailer returns an SMTP mailer when a host is configured, otherwise a
// mailer that writes messages to the log.
func NewMailer(cfg config.MailConfig) (core.Mailer, error) {
	if cfg.SMTPHost == "" {
		slog.Info("no SMTP host configured, notifications go to the log")
		return notify.NewLog(nil), nil
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
}
