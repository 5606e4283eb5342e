// Package app wires the task board components from a workspace and its config.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"taskboard/internal/analytics"
	"taskboard/internal/auth"
	"taskboard/internal/boards"
	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/engine"
	"taskboard/internal/events"
	"taskboard/internal/kv"
	"taskboard/internal/migrate"
	"taskboard/internal/mirror"
	"taskboard/internal/notify"
	"taskboard/internal/repo"
	"taskboard/internal/taskstore"
)

type Options struct {
	Workspace string
	Config    *config.Config
	Logger    log.FieldLogger
	// UserID overrides auth.user_id from the config.
	UserID string
	// Listen starts remote snapshot listeners. Short-lived commands leave it off.
	Listen bool
	Now    func() time.Time
}

// App holds the running components. Close releases them.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Engine   *engine.Engine
	Session  *auth.Session
	Verifier auth.Verifier
	Logger   log.FieldLogger

	closers []func() error
}

// Open migrates the workspace database, builds the configured backends and
// starts the coordinator.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadOptional(opts.Workspace)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: conn, Logger: logger}
	a.closers = append(a.closers, conn.Close)
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		a.Close()
		return nil, err
	}
	a.Repo = repo.Repo{DB: conn, Now: now}
	a.Events = events.Writer{Repo: a.Repo, Logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	backend, fbApp, err := a.openRemote(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	userID := cfg.Auth.UserID
	if strings.TrimSpace(opts.UserID) != "" {
		userID = opts.UserID
	}
	a.Session = auth.NewSession(userID)
	if a.Verifier, err = verifier(ctx, cfg, fbApp); err != nil {
		a.Close()
		return nil, err
	}

	var m *mirror.Mirror
	if backend != nil {
		m = mirror.New(backend, mirror.WithLogger(logger))
	}
	tasks := taskstore.New(store, logger)
	tasks.Now = now
	a.Engine = engine.New(engine.Options{
		Store:        tasks,
		Boards:       boards.New(store, logger),
		Mirror:       m,
		Auth:         a.Session,
		Notifier:     notifier(cfg, logger),
		Analytics:    analytics.Multi{analytics.LogSink{Logger: logger}, a.Events},
		Logger:       logger,
		ReminderHour: cfg.Notifications.ReminderHour,
		Now:          now,
	})
	if opts.Listen {
		a.Engine.Start(ctx)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (kv.Store, error) {
	switch a.Config.Storage.Backend {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: a.Config.Storage.RedisAddr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", a.Config.Storage.RedisAddr, err)
		}
		return kv.NewRedis(client, a.Config.Storage.RedisPrefix), nil
	case config.StorageMemory:
		return kv.NewMemory(), nil
	default:
		return a.Repo, nil
	}
}

func (a *App) openRemote(ctx context.Context) (mirror.Backend, *firebase.App, error) {
	switch a.Config.Remote.Backend {
	case config.RemoteMemory:
		return mirror.NewMemory(), nil, nil
	case config.RemoteFirestore:
		var opts []option.ClientOption
		if f := strings.TrimSpace(a.Config.Remote.CredentialsFile); f != "" {
			opts = append(opts, option.WithCredentialsFile(f))
		}
		var fbCfg *firebase.Config
		if p := strings.TrimSpace(a.Config.Remote.ProjectID); p != "" {
			fbCfg = &firebase.Config{ProjectID: p}
		}
		fbApp, err := firebase.NewApp(ctx, fbCfg, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize firebase: %w", err)
		}
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return mirror.NewFirestore(client), fbApp, nil
	default:
		return nil, nil, nil
	}
}

func verifier(ctx context.Context, cfg *config.Config, fbApp *firebase.App) (auth.Verifier, error) {
	if cfg.Auth.Firebase && fbApp != nil {
		client, err := fbApp.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return auth.NewFirebaseVerifier(client), nil
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) != "" {
		return auth.JWTVerifier{Secret: cfg.Auth.JWTSecret}, nil
	}
	return nil, nil
}

func notifier(cfg *config.Config, logger log.FieldLogger) notify.Notifier {
	n := notify.Multi{notify.LogNotifier{Logger: logger}}
	if url := strings.TrimSpace(cfg.Notifications.WebhookURL); url != "" {
		n = append(n, notify.Webhook{
			URL:     url,
			Secret:  cfg.Notifications.WebhookSecret,
			Timeout: time.Duration(cfg.Notifications.TimeoutSeconds) * time.Second,
		})
	}
	return n
}

// Close stops the coordinator and closes every backend in reverse order.
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
