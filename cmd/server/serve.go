package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/alarm"
	"github.com/iliyamo/clinic-treatment-board/internal/clock"
	"github.com/iliyamo/clinic-treatment-board/internal/config"
	"github.com/iliyamo/clinic-treatment-board/internal/database"
	"github.com/iliyamo/clinic-treatment-board/internal/handler"
	"github.com/iliyamo/clinic-treatment-board/internal/metrics"
	"github.com/iliyamo/clinic-treatment-board/internal/middleware"
	"github.com/iliyamo/clinic-treatment-board/internal/queue"
	"github.com/iliyamo/clinic-treatment-board/internal/refine"
	"github.com/iliyamo/clinic-treatment-board/internal/replication"
	"github.com/iliyamo/clinic-treatment-board/internal/repository"
	"github.com/iliyamo/clinic-treatment-board/internal/router"
	"github.com/iliyamo/clinic-treatment-board/internal/service"
	"github.com/iliyamo/clinic-treatment-board/internal/websocket"
)

// openSnapshotRepo opens the configured database and makes sure the
// snapshot table exists.  The returned func closes the database.
func openSnapshotRepo(ctx context.Context, sc config.SnapshotConfig) (*repository.SnapshotRepo, func(), error) {
	var (
		db      *sql.DB
		err     error
		dialect repository.Dialect
	)
	switch sc.Driver {
	case "mysql":
		db, err = database.OpenMySQL(sc.DBUser, sc.DBPass, sc.DBHost, sc.DBPort, sc.DBName)
		dialect = repository.DialectMySQL
	case "sqlite", "":
		db, err = database.OpenSQLite(sc.Path)
		dialect = repository.DialectSQLite
	default:
		return nil, nil, fmt.Errorf("unsupported snapshot driver %q", sc.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot database: %w", err)
	}
	repo := repository.NewSnapshotRepo(db, dialect, sc.Key)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return repo, func() { _ = db.Close() }, nil
}

func runServer(parent context.Context, cfg config.Config) error {
	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "clinic-board")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeDB, err := openSnapshotRepo(ctx, cfg.Snapshot)
	if err != nil {
		return err
	}
	defer closeDB()

	initial := service.LoadInitialState(ctx, repo, cfg.InitialBayCount, log)
	m := metrics.New()
	persister := service.NewPersister(repo, log)

	sinks := alarm.Multi{alarm.LogSink{Log: log}}
	if cfg.Broker.MQTTBroker != "" {
		mq, err := alarm.NewClient(alarm.MQTTConfig{
			Broker:   cfg.Broker.MQTTBroker,
			ClientID: cfg.Broker.MQTTClientID,
			Username: cfg.Broker.MQTTUsername,
			Password: cfg.Broker.MQTTPassword,
		})
		if err != nil {
			log.Warn("mqtt unavailable; buzzers disabled", zap.Error(err))
		} else {
			defer mq.Disconnect()
			sinks = append(sinks, alarm.MQTTSink{Pub: mq, Prefix: cfg.Broker.MQTTPrefix, Log: log})
		}
	}

	deps := service.Deps{
		Clock:           clock.Real{},
		AlarmClearAfter: cfg.AlarmClearAfter,
		Saver:           persister,
		Sink:            sinks,
		Metrics:         m,
		Logger:          log,
	}
	var wg sync.WaitGroup
	if cfg.Broker.EventsEnabled && cfg.Broker.RabbitURL != "" {
		deps.Events = service.EventPublisher{URL: cfg.Broker.RabbitURL, Log: log}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = queue.StartDischargeConsumer(ctx, cfg.Broker.RabbitURL, cfg.Broker.EventLogDir, log)
		}()
	}
	if cfg.Refine.BaseURL != "" {
		deps.Refiner = refine.NewClient(refine.Config{
			BaseURL: cfg.Refine.BaseURL,
			APIKey:  cfg.Refine.APIKey,
			Timeout: cfg.Refine.Timeout,
		}, log)
	}
	board := service.NewBoard(initial, deps)

	hub := websocket.NewHub(m, log)
	board.SetViewers(hub)

	syncStatus := func() replication.Status { return replication.LocalStatus }
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	if rdb != nil && cfg.Remote.Enabled {
		rep := replication.New(
			replication.NewRedisStore(rdb, cfg.Remote.StateKey, log),
			replication.Config{
				Origin:      uuid.NewString(),
				EchoWindow:  cfg.Remote.EchoWindow,
				PushTimeout: cfg.Remote.PushTimeout,
			},
			clock.Real{}, m, log,
		)
		board.SetPusher(rep)
		syncStatus = rep.Status
		wg.Add(1)
		go func() { defer wg.Done(); rep.Run(ctx, board) }()
		log.Info("remote sync enabled", zap.String("key", cfg.Remote.StateKey))
	} else {
		log.Info("running in local mode")
	}

	wg.Add(2)
	go func() { defer wg.Done(); persister.Run(ctx) }()
	go func() { defer wg.Done(); board.Run(ctx, cfg.TickInterval) }()

	bh := handler.NewBoardHandler(board, syncStatus, cfg.HistoryTZ)
	e := echo.New()
	e.HideBanner = true
	e.Debug = !cfg.Production()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	d := router.Deps{
		Board:        bh,
		Auth:         handler.NewAuthHandler(cfg),
		Viewers:      websocket.NewHandler(hub, board.Observe),
		Metrics:      m.Handler(),
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		HistoryCache: middleware.NewHistoryCache(config.LoadCacheConfig(), rdb, bh.HistoryVersion),
	}
	router.RegisterRoutes(e, d)
	router.RegisterBoard(e, d)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Int("bays", len(initial.Bays)))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
	persister.Flush()
	return runErr
}
