// cmd/portal-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rts-portal/internal/api"
	awsx "rts-portal/internal/common/aws"
	"rts-portal/internal/common/camunda"
	"rts-portal/internal/common/config"
	"rts-portal/internal/common/database"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/observability"
	"rts-portal/internal/common/storage"
	"rts-portal/internal/forms"
	"rts-portal/internal/store"

	sn "rts-portal/internal/workers/application/send-notification"
	sa "rts-portal/internal/workers/application/submit-application"
	ta "rts-portal/internal/workers/application/track-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service":     cfg.App.Name,
		"environment": cfg.App.Environment,
	})
	zapLog.Info("Starting portal server...", zap.String("version", cfg.App.Version))

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := forms.Default()
	checks := make(map[string]api.ReadinessCheck)

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	err = retryWithBackoff(func() error {
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg.Ping
	zapLog.Info("PostgreSQL connected successfully")

	pgStore := store.NewPostgresStore(pg.DB, registry, store.OptionsFromConfig(cfg.Database.Postgres), log)
	if cfg.Database.Postgres.AutoMigrate {
		if err := pgStore.Migrate(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("Schema migrated")
	}
	var appStore store.Store = pgStore

	// --- Elasticsearch ---
	var search api.Searcher
	if cfg.Database.Elasticsearch.Enabled {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch init failed", zap.Error(err))
		}
		err = retryWithBackoff(func() error {
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = esClient.Ping

		index := store.NewSearchIndex(esClient.Client, cfg.Search.Index, log)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Warn("search index not ready", zap.Error(err))
		}
		appStore = store.NewIndexedStore(appStore, index, log)
		search = index
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Redis ---
	if cfg.Database.Redis.Enabled {
		rc := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		checks["redis"] = rc.Ping

		appStore = store.NewCachedStore(appStore, rc.Client, cfg.Cache, log)
		zapLog.Info("Redis connected successfully")
	}

	// --- File intake ---
	files, err := storage.NewFileStore(cfg.Storage, log)
	if err != nil {
		zapLog.Fatal("file store init failed", zap.Error(err))
	}
	go sweepStaging(ctx, files, cfg.Storage, log)

	// --- Notifications ---
	var sesClient sn.SESService
	var snsClient sn.SNSService
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err := awsx.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Integrations.AWS.SES.Enabled {
			sesClient = awsx.NewSESClient(awsCfg)
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			snsClient = awsx.NewSNSClient(awsCfg)
		}
	}
	notifier := sn.NewHandler(sn.LoadConfig(cfg), sesClient, snsClient, log)

	// --- Camunda ---
	submitCfg := sa.LoadConfig(cfg)
	var dispatcher sa.Dispatcher = sa.NewDirectDispatcher(notifier)
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientFromConfig(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		checks["camunda"] = zeebe.HealthCheck

		dispatcher = sa.NewProcessDispatcher(zeebe, submitCfg.ProcessID, log)
		zapLog.Info("Zeebe client connected successfully")
	}

	submitter := sa.NewHandler(submitCfg, sa.Dependencies{
		Forms:         registry,
		Store:         appStore,
		Files:         files,
		Dispatcher:    dispatcher,
		Observability: obs,
	}, log)
	tracker := ta.NewHandler(ta.LoadConfig(cfg), appStore, registry, obs, log)

	var workers []*camunda.CamundaWorker
	if zeebe != nil {
		client := zeebe.GetClient()
		workers = append(workers,
			camunda.StartWorker(client, sa.TaskType, config.GetWorkerConfig(cfg, sa.TaskType), submitter, log),
			camunda.StartWorker(client, ta.TaskType, config.GetWorkerConfig(cfg, ta.TaskType), tracker, log),
			camunda.StartWorker(client, sn.TaskType, config.GetWorkerConfig(cfg, sn.TaskType), notifier, log),
		)
	}

	// --- HTTP ---
	server := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: api.NewRouter(cfg.HTTP, api.Dependencies{
			Forms:   registry,
			Store:   appStore,
			Submit:  submitter,
			Track:   tracker,
			Search:  search,
			Storage: cfg.Storage,
			Checks:  checks,
		}, log),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("Portal server stopped")
}

// sweepStaging removes staged uploads abandoned by failed or interrupted submissions.
func sweepStaging(ctx context.Context, files *storage.FileStore, cfg config.StorageConfig, log logger.Logger) {
	ticker := time.NewTicker(config.GetDuration(cfg.SweepEvery))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := files.SweepStaging(cfg.SweepAfterDuration())
			if err != nil {
				log.Warn("staging sweep failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			if n > 0 {
				log.Info("staging swept", map[string]interface{}{"removed": n})
			}
		}
	}
}
