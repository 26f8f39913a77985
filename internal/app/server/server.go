package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/reports"
	"hrleave/internal/platform/awsclient"
	"hrleave/internal/platform/cache"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/crypto"
	"hrleave/internal/platform/db"
	"hrleave/internal/platform/events"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/platform/metrics"
	"hrleave/internal/platform/storage"
	"hrleave/internal/store/memory"
	"hrleave/internal/store/mongostore"
	"hrleave/internal/store/postgres"
	authhandler "hrleave/internal/transport/http/handlers/auth"
	employeehandler "hrleave/internal/transport/http/handlers/employees"
	leavehandler "hrleave/internal/transport/http/handlers/leave"
	reportshandler "hrleave/internal/transport/http/handlers/reports"
	"hrleave/internal/transport/http/middleware"
)

// Store is what every persistence adapter offers the server.
type Store interface {
	employee.StoreAPI
	leave.StoreAPI
	Ping(ctx context.Context) error
	Close()
}

type App struct {
	Config    config.Config
	Store     Store
	Employees *employee.Service
	Leave     *leave.Service
	Reports   *reports.Service
	Jobs      *jobs.Service
	Uploads   storage.Uploader
	Router    http.Handler

	closers []func()
}

// New builds the application from cfg. The caller owns the returned App and
// must call Close once the HTTP server has stopped.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	if err := app.build(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return fmt.Errorf("data encryption key: %w", err)
	}
	if !sealer.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set, sensitive fields stored in plain text")
	}

	a.Employees = employee.NewService(store, cfg.BalanceDefaults())
	a.Employees.Sealer = sealer
	a.Employees.AllowSelfSignup = cfg.AllowSelfSignup
	if cfg.RunSeed {
		if err := db.SeedAdmin(ctx, a.Employees, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	publisher, err := a.publisher(ctx, collector)
	if err != nil {
		return err
	}

	a.Leave = leave.NewService(store, store, cal)
	a.Leave.Location = loc
	a.Leave.Events = publisher
	if collector != nil {
		a.Leave.Metrics = collector
	}

	a.Reports = reports.NewService(store, loc)

	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	a.closers = append(a.closers, cancelJobs)
	a.Jobs = jobs.New(a.Employees, loc, cfg.BalanceResetEnabled)
	a.Jobs.Start(jobCtx)

	if a.Uploads, err = a.uploader(ctx); err != nil {
		return err
	}

	counter, err := a.counter(ctx)
	if err != nil {
		return err
	}

	a.Router = a.routes(counter, collector)
	return nil
}

// OpenStore connects the adapter named by cfg.StoreDriver, migrating first
// when RUN_MIGRATIONS is set.
func OpenStore(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		return postgres.New(pool), nil
	case config.DriverMongo:
		store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		return store, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (a *App) publisher(ctx context.Context, collector *metrics.Collector) (leave.Publisher, error) {
	var next leave.Publisher = events.LogPublisher{}
	if a.Config.EventsQueueURL != "" {
		awsCfg, err := awsclient.Load(ctx, a.Config.AWSRegion, a.Config.AWSEndpoint)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		next = events.NewSQSPublisher(sqs.NewFromConfig(awsCfg), a.Config.EventsQueueURL)
	}
	if collector == nil {
		return next, nil
	}
	return events.Instrumented{Next: next, Recorder: collector}, nil
}

func (a *App) uploader(ctx context.Context) (storage.Uploader, error) {
	if a.Config.S3Bucket == "" {
		return storage.NewMemory(), nil
	}
	awsCfg, err := awsclient.Load(ctx, a.Config.AWSRegion, a.Config.AWSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = a.Config.AWSEndpoint != ""
	})
	return storage.NewS3(client, a.Config.S3Bucket, a.Config.S3PublicBaseURL), nil
}

func (a *App) counter(ctx context.Context) (cache.Counter, error) {
	if a.Config.RedisAddr == "" {
		return cache.NewMemory(), nil
	}
	redis, err := cache.OpenRedis(ctx, a.Config.RedisAddr, a.Config.RedisPassword)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	a.closers = append(a.closers, func() { _ = redis.Close() })
	return redis, nil
}

func (a *App) routes(counter cache.Counter, collector *metrics.Collector) http.Handler {
	cfg := a.Config
	var recorder middleware.RequestRecorder
	if collector != nil {
		recorder = collector
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Retry-After", "X-RateLimit-Remaining"},
			MaxAge:         300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.UploadMaxBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		if pinger, ok := counter.(interface{ Ping(context.Context) error }); ok {
			if err := pinger.Ping(ctx); err != nil {
				http.Error(w, "cache not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if collector != nil {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(counter, cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(counter, cfg.RateLimitPerMinute, time.Minute))

		authhandler.NewHandler(a.Employees, cfg.JWTSecret, cfg.TokenTTL, a.Uploads, cfg.UploadMaxBytes).RegisterRoutes(r)
		employeehandler.NewHandler(a.Employees, a.Jobs).RegisterRoutes(r)
		leavehandler.NewHandler(a.Leave, a.Uploads, cfg.UploadMaxBytes).RegisterRoutes(r)
		reportshandler.NewHandler(a.Reports, a.Leave.Location).RegisterRoutes(r)
	})

	return otelhttp.NewHandler(router, cfg.ServiceName)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

