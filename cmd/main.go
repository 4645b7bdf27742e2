package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/fluxo-backend/config"
	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/container"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/memory"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/openrouter"
	pginfra "github.com/oksasatya/fluxo-backend/internal/infrastructure/postgres"
	"github.com/oksasatya/fluxo-backend/internal/interface/middleware"
	"github.com/oksasatya/fluxo-backend/internal/router"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/mailer"
	"github.com/oksasatya/fluxo-backend/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// GCS (avatars); without a bucket uploads answer 503
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetGCS(gcsClient)
	}

	// Elasticsearch (prompt search); optional
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else {
			container.SetES(es)
			esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := helpers.EnsureESIndex(esCtx, es, cfg.ESPromptsIndex, application.PromptsIndexMapping); err != nil {
				logger.WithError(err).Warn("prompt index not ensured; search may fail")
			}
			cancel()
		}
	}

	dispatcher, closeDispatcher, err := buildDispatcher(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init mail transport: %v", err)
	}
	defer closeDispatcher()

	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL, cfg.AppName)
	generator := openrouter.NewClient(openrouter.Config{
		URL:       cfg.OpenRouterURL,
		APIKey:    cfg.OpenRouterAPIKey,
		Model:     cfg.OpenRouterModel,
		Referer:   cfg.OpenRouterReferer,
		Title:     cfg.CompanyName,
		Timeout:   cfg.GenerationTimeout,
		MaxTokens: cfg.MaxTokens,
	}, nil)
	if cfg.OpenRouterAPIKey == "" {
		logger.Warn("OPENROUTER_API_KEY is empty; prompt generation will answer 503")
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetStore(store)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetClock(helpers.NewSystemClock(cfg.QuotaLocation()))
	container.SetNotifier(mailer.NewNotifier(cfg, dispatcher, logger))
	container.SetGenerator(generator)

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPaths("/health")))
	if cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	if pool := container.GetPGPool(); pool != nil {
		reg.Check("postgres", pool.Ping)
	}
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s (store=%s, mail=%s)", cfg.Port, cfg.StoreDriver, cfg.MailTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	// let in-flight welcome emails finish before the transport closes
	if l := container.GetVerificationLedger(); l != nil {
		l.Close()
	}
	logger.Info("server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (container.Store, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("STORE_DRIVER=memory: data is lost on restart")
		s := memory.New()
		s.SeedStyles(entity.DefaultPromptStyles...)
		return s, func() {}, nil
	case "postgres", "":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:          cfg.DBMaxConns,
			MinConns:          cfg.DBMinConns,
			MaxConnLifetime:   cfg.DBMaxConnLife,
			HealthCheckPeriod: time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		// Run migrations using database/sql with pgx stdlib
		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		container.SetPGPool(pool)
		return pginfra.NewStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// buildDispatcher wires MAIL_TRANSPORT: queue publishes to RabbitMQ for
// cmd/email_worker, the others render and send in-process.
func buildDispatcher(cfg *config.Config, logger *logrus.Logger) (mailer.Dispatcher, func(), error) {
	if cfg.MailTransport == "queue" && cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mailer.QueueDispatcher{Publisher: pub}, pub.Close, nil
	}
	sender, err := mailer.NewSenderFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return mailer.DirectDispatcher{Sender: sender}, func() {}, nil
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
