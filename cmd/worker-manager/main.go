package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"jobmatch-workers/internal/catalog"
	awsclients "jobmatch-workers/internal/common/aws"
	"jobmatch-workers/internal/common/camunda"
	"jobmatch-workers/internal/common/config"
	"jobmatch-workers/internal/common/database"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/observability"
	"jobmatch-workers/internal/matching"
	"jobmatch-workers/internal/notification"
	"jobmatch-workers/internal/scheduler"
	"jobmatch-workers/internal/store"
	"jobmatch-workers/pkg/registry"

	cja "jobmatch-workers/internal/workers/alerts/create-job-alert"
	mja "jobmatch-workers/internal/workers/alerts/match-jobs-for-alert"
	tas "jobmatch-workers/internal/workers/alerts/tick-alert-scheduler"
	car "jobmatch-workers/internal/workers/application/create-application-record"
	ccs "jobmatch-workers/internal/workers/matching/calculate-candidate-score"
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

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

func main() {
	zapLog := logger.New("info", "console", "")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Warn("observability init failed, tracing disabled", zap.Error(err))
		obs = observability.NewNoop()
	}

	ctx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	checks := []readinessCheck{
		{name: "zeebe", check: zeebe.HealthCheck},
		{name: "postgres", check: pg.Ping},
		{name: "redis", check: redis.Ping},
	}

	// --- Job catalog backend ---
	var matcher catalog.Matcher
	switch cfg.Catalog.Backend {
	case "elasticsearch":
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		esMatcher := catalog.NewElasticsearchMatcher(esClient.Client, cfg.Catalog.Index, log)
		if err := esMatcher.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("jobs index setup failed", zap.Error(err))
		}
		matcher = esMatcher
		checks = append(checks, readinessCheck{name: "elasticsearch", check: esClient.Ping})
	default:
		matcher = catalog.NewPostgresMatcher(pg.DB, log)
	}
	zapLog.Info("Job catalog ready", zap.String("backend", matcher.Backend()))

	// --- Notification channels ---
	var (
		sesClient notification.SESService
		snsClient notification.SNSService
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.Push.Enabled {
		awsCfg, err := awsclients.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			sesClient = awsclients.NewSESClient(awsCfg)
		}
		if cfg.Notifications.Push.Enabled {
			snsClient = awsclients.NewSNSClient(awsCfg)
		}
	}
	notifier := notification.NewService(notification.ConfigFrom(cfg.Notifications), pg.DB, sesClient, snsClient, log)

	// --- Stores and engine ---
	candidates := store.NewCandidateStore(pg.DB, redis.Client, config.GetDuration(cfg.Matching.ProfileCacheTTL), log)
	jobs := store.NewJobStore(pg.DB)
	applications := store.NewApplicationStore(pg.DB, log)
	alertStore := store.NewAlertStore(pg.DB)

	evaluator := matching.NewEvaluator(candidates, jobs, applications, log)
	alertScheduler := scheduler.New(
		scheduler.ConfigFrom(cfg.Scheduler),
		alertStore,
		matcher,
		notifier,
		scheduler.NewRedisLocker(redis.Client, log),
		obs,
		log,
	)

	// --- Register workers ---
	configured := make([]string, 0, len(cfg.Workers))
	for name := range cfg.Workers {
		configured = append(configured, name)
	}
	for _, name := range registry.Default().Unknown(configured) {
		zapLog.Warn("worker config has no matching activity", zap.String("taskType", name))
	}

	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.StartWorker(zeebe.Zeebe(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(ccs.TaskType, ccs.NewHandler(ccs.LoadConfig(config.GetWorkerConfig(cfg, ccs.TaskType)), evaluator, applications, log))
	register(car.TaskType, car.NewHandler(car.LoadConfig(config.GetWorkerConfig(cfg, car.TaskType)), applications, evaluator, log))
	register(cja.TaskType, cja.NewHandler(cja.LoadConfig(config.GetWorkerConfig(cfg, cja.TaskType)), alertStore, log))
	register(mja.TaskType, mja.NewHandler(mja.LoadConfig(config.GetWorkerConfig(cfg, mja.TaskType)), alertStore, matcher, log))
	register(tas.TaskType, tas.NewHandler(tas.LoadConfig(config.GetWorkerConfig(cfg, tas.TaskType)), alertScheduler, scheduler.SystemClock(), log))
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- In-process alert scheduler ---
	var runner *scheduler.Runner
	if cfg.Scheduler.Enabled {
		runner = scheduler.NewRunner(cfg.Scheduler.Spec, alertScheduler, scheduler.SystemClock(), log)
		if err := runner.Start(ctx); err != nil {
			zapLog.Fatal("alert scheduler failed to start", zap.Error(err))
		}
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, results := http.StatusOK, make(map[string]string, len(checks))
		for _, c := range checks {
			if err := c.check(checkCtx); err != nil {
				status = http.StatusServiceUnavailable
				results[c.name] = err.Error()
				continue
			}
			results[c.name] = "ok"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		writeJSON(w, status, map[string]interface{}{
			"status": state,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Observability.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if runner != nil {
		runner.Stop(shutdownCtx)
	}
	cancelRoot()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	obs.Shutdown(shutdownCtx)

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := redis.Close(); err != nil {
		zapLog.Error("Error closing Redis client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
