package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/container"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
	esinfra "github.com/oksasatya/go-account-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-account-service/internal/infrastructure/memory"
	mongoinfra "github.com/oksasatya/go-account-service/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-account-service/internal/router"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/mailer"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// Credential store
	users, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to open credential store")
	}
	defer closeStore()

	// Redis (optional): dead letters + readiness
	var rdb *redis.Client
	var dead mailer.DeadLetterSink
	if cfg.RedisAddr != "" {
		rdb = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		dead = helpers.NewRedisDeadLetters(rdb)
	}

	// Email transport
	var (
		notifier   application.Notifier
		dispatcher *mailer.Dispatcher
		rabbit     *helpers.RabbitPublisher
	)
	switch cfg.EmailTransport {
	case config.TransportRabbitMQ:
		rabbit, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer rabbit.Close()
		notifier = rabbit
	default:
		dispatcher = mailer.NewDispatcher(newSender(cfg, logger), logger, mailer.DispatcherOptions{
			Workers:     cfg.EmailWorkers,
			QueueSize:   cfg.EmailQueueSize,
			DeadLetters: dead,
		})
		notifier = dispatcher
	}

	// Audit trail (optional)
	var audit repository.AuditLog = repository.NopAuditLog{}
	var indexer *esinfra.AuditIndexer
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(helpers.ESOptions{
			Addrs:    addrs,
			Username: cfg.ElasticsearchUser,
			Password: cfg.ElasticsearchPass,
		})
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else {
			indexer = esinfra.NewAuditIndexer(es, cfg.ESAuditIndex, logger)
			audit = indexer
		}
	}

	c := container.New(cfg, logger, container.Deps{
		Users:    users,
		Audit:    audit,
		Notifier: notifier,
		Redis:    rdb,
		Rabbit:   rabbit,
	})
	r := router.NewEngine(c)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
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
		logger.WithError(err).Error("server forced to shutdown")
	}
	if dispatcher != nil {
		if err := dispatcher.Close(ctxShutdown); err != nil {
			logger.WithError(err).Warn("email queue not fully drained")
		}
	}
	if indexer != nil {
		_ = indexer.Close(ctxShutdown)
	}
	logger.Info("server exited properly")
}

// openStore connects the configured credential store and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongoinfra.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := mongoinfra.NewUserRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	case config.StoreMemory:
		logger.Warn("using in-memory credential store; data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	default:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pginfra.NewUserRepository(pool), pool.Close, nil
	}
}

// newSender picks the mail provider for the in-process dispatcher.
func newSender(cfg *config.Config, logger *logrus.Logger) mailer.Sender {
	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; emails are logged, not sent")
		return mailer.LogSender{Logger: logger}
	}
	if cfg.MailProvider == config.MailProviderMailgun {
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.NoReplyAddress)
	}
	return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.NoReplyAddress)
}
