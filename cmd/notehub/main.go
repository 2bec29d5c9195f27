package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"notehub/internal/analytics"
	"notehub/internal/api"
	"notehub/internal/circuitbreaker"
	"notehub/internal/config"
	"notehub/internal/dispatch"
	"notehub/internal/leaderelection"
	"notehub/internal/metrics"
	"notehub/internal/notes"
	notesmemory "notehub/internal/notes/memory"
	notespostgres "notehub/internal/notes/postgres"
	"notehub/internal/scheduler"
	"notehub/internal/transport/channel"
	"notehub/internal/trigger"
	triggermemory "notehub/internal/trigger/memory"
	triggerpostgres "notehub/internal/trigger/postgres"
	"notehub/internal/worker"
	workerpostgres "notehub/internal/worker/postgres"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`notehub - note backend with notification triggers

Usage:
  notehub <command>

Commands:
  serve      Start the API, scheduler and notification worker
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  TRIGGER_STORE             Trigger/note storage: "memory" or "postgres" (default: "memory")
  DATABASE_URL              PostgreSQL connection string (required for postgres)
  REDIS_ADDR                Redis address for firing analytics (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")

  WEBHOOK_URL               Notification webhook endpoint (required)
  WEBHOOK_SECRET            HMAC signing secret for webhook payloads (optional)
  WEBHOOK_TIMEOUT           Webhook request timeout (default: "30s")

  TICK_INTERVAL             Scheduler tick interval (default: "30s")
  WORKERS                   Notification worker pool size (default: "1")
  EVENTBUS_BUFFER_SIZE      Fire event buffer capacity (default: "100")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  WORKER_DRAIN_TIMEOUT      Worker event drain timeout (default: "30s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  CIRCUIT_BREAKER_THRESHOLD Consecutive failures before opening (default: "5", "0" disables)
  CIRCUIT_BREAKER_COOLDOWN  Open state cooldown (default: "2m")

  LEADER_ENABLED            Run the scheduler via Postgres advisory lock (default: "false")
  LEADER_LOCK_KEY           Advisory lock key shared by all instances (default: "917405")
  LEADER_RETRY_INTERVAL     Follower lock retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL Leader connection ping interval (default: "2s")`)
}

// logConfigWarnings flags configurations that are valid but risky in
// production. Validation rejects broken configs; this only warns.
func logConfigWarnings(cfg config.Config) {
	if cfg.TriggerStore == "memory" {
		log.Println("WARNING [P0]: TRIGGER_STORE=memory. Notes and armed triggers are " +
			"lost on restart. Use TRIGGER_STORE=postgres for durable scheduling.")
	}

	if cfg.WebhookSecret == "" {
		log.Println("WARNING [P1]: WEBHOOK_SECRET is empty. Outgoing notifications are " +
			"unsigned and receivers cannot verify their origin.")
	}

	if cfg.CircuitBreakerThreshold == 0 {
		log.Println("WARNING [P1]: CIRCUIT_BREAKER_THRESHOLD=0. A dead webhook endpoint " +
			"will be hammered on every due trigger with no backoff.")
	}

	if !cfg.MetricsEnabled {
		log.Println("WARNING [P1]: METRICS_ENABLED=false. Missed ticks and failed " +
			"deliveries will be invisible. Strongly recommended in production.")
	}

	if cfg.TriggerStore == "postgres" && !cfg.LeaderEnabled {
		log.Println("INFO: LEADER_ENABLED=false with a shared postgres store. Safe for a " +
			"single instance; enable leader election before running replicas.")
	}
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logConfigWarnings(cfg)

	// Connect to PostgreSQL when any component needs it.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			return exitRuntimeError
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

		log.Printf("notehub: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
			cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

		if err := db.Ping(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
			return exitRuntimeError
		}
	}

	// Pick the storage backend.
	var triggerStore trigger.Store
	var noteStore notes.Store
	switch cfg.TriggerStore {
	case "postgres":
		triggerStore = triggerpostgres.New(db, cfg.DBOpTimeout)
		noteStore = notespostgres.New(db, cfg.DBOpTimeout)
		log.Println("notehub: using postgres stores")
	default:
		triggerStore = triggermemory.New()
		noteStore = notesmemory.New()
		log.Println("notehub: using in-memory stores (state is lost on restart)")
	}
	triggerService := trigger.NewService(triggerStore)

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("notehub: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("notehub: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("notehub: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("notehub: METRICS_ENABLED not set; metrics disabled")
	}

	// Fire event bus between scheduler and worker.
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	sched := scheduler.New(
		scheduler.Config{TickInterval: cfg.TickInterval},
		triggerStore,
		bus,
	)
	if metricsSink != nil {
		sched = sched.WithMetrics(metricsSink)
	}

	// Webhook dispatcher, optionally guarded by a circuit breaker.
	webhookDispatcher := dispatch.NewWebhookDispatcher(dispatch.WebhookConfig{
		URL:     cfg.WebhookURL,
		Secret:  cfg.WebhookSecret,
		Timeout: cfg.WebhookTimeout,
	})
	if cfg.CircuitBreakerThreshold > 0 {
		breaker := circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
		webhookDispatcher = webhookDispatcher.WithBreaker(breaker)
		log.Printf("notehub: circuit breaker enabled (threshold=%d, cooldown=%s)",
			cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
	}

	notifier := worker.New(
		worker.Config{Workers: cfg.Workers, DrainTimeout: cfg.WorkerDrainTimeout},
		webhookDispatcher,
	)
	if metricsSink != nil {
		notifier = notifier.WithMetrics(metricsSink)
	}
	if db != nil {
		notifier = notifier.WithDeliveryLog(workerpostgres.NewDeliveryLog(db, cfg.DBOpTimeout))
	}

	// Wire analytics if Redis is configured
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		notifier = notifier.WithAnalytics(analytics.NewRedisSink(redisClient))
		log.Printf("notehub: analytics enabled (redis=%s)", cfg.RedisAddr)
	} else {
		log.Println("notehub: REDIS_ADDR not set; analytics disabled")
	}

	apiHandler := api.NewHandler(noteStore, triggerService)
	if db != nil {
		apiHandler = apiHandler.WithHealthChecker(db)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}

	go func() {
		log.Printf("notehub: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("notehub: http server error: %v", err)
		}
	}()

	// Separate contexts for scheduler and worker enable ordered shutdown.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	workerCtx, cancelWorker := context.WithCancel(context.Background())

	var schedulerWg sync.WaitGroup
	var workerWg sync.WaitGroup

	if cfg.LeaderEnabled {
		// The advisory lock guarantees one scheduler across instances;
		// onDemoted blocks until this instance's scheduler has stopped.
		var leaderWg sync.WaitGroup
		elector := leaderelection.New(
			db,
			cfg.LeaderLockKey,
			cfg.LeaderRetryInterval,
			cfg.LeaderHeartbeatInterval,
			func(leaderCtx context.Context) {
				leaderWg.Add(1)
				go func() {
					defer leaderWg.Done()
					sched.Run(leaderCtx)
				}()
			},
			func() {
				leaderWg.Wait()
			},
		)
		schedulerWg.Add(1)
		go func() {
			defer schedulerWg.Done()
			elector.Run(schedulerCtx)
		}()
		log.Printf("notehub: leader election enabled (lock_key=%d)", cfg.LeaderLockKey)
	} else {
		schedulerWg.Add(1)
		go func() {
			defer schedulerWg.Done()
			sched.Run(schedulerCtx)
		}()
	}

	workerWg.Add(1)
	go func() {
		defer workerWg.Done()
		notifier.Run(workerCtx, bus.Channel())
	}()

	log.Printf("notehub: started (tick=%s, http=%s, workers=%d)", cfg.TickInterval, cfg.HTTPAddr, cfg.Workers)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("notehub: received signal %v, shutting down", received)

	// Phase 1: Stop scheduler (no new fire events)
	log.Println("notehub: stopping scheduler...")
	cancelScheduler()
	schedulerWg.Wait()
	log.Println("notehub: scheduler stopped")

	// Phase 2: Stop worker (drains buffered fire events before returning)
	log.Println("notehub: stopping worker (draining events)...")
	cancelWorker()
	workerWg.Wait()
	log.Println("notehub: worker stopped")

	// Phase 3: Stop HTTP server with graceful shutdown
	log.Println("notehub: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("notehub: http server shutdown error: %v", err)
	}
	log.Println("notehub: http server stopped")

	// Phase 4: Stop metrics server if running (with same timeout)
	if metricsServer != nil {
		log.Println("notehub: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("notehub: metrics server shutdown error: %v", err)
		}
		log.Println("notehub: metrics server stopped")
	}

	log.Println("notehub: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("notehub version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
