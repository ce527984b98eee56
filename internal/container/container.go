package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// Container holds the components built once at startup. It is constructed in
// main and passed to the router; nothing in it is global.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Users    repository.UserRepository
	Audit    repository.AuditLog
	Notifier application.Notifier

	// Optional infrastructure; nil when not configured.
	Redis  *redis.Client
	Rabbit *helpers.RabbitPublisher

	Tokens   *helpers.JWTManager
	Hasher   helpers.BcryptHasher
	Cookies  *helpers.Manager
	Accounts *application.AccountService
}

type Deps struct {
	Users    repository.UserRepository
	Audit    repository.AuditLog
	Notifier application.Notifier
	Redis    *redis.Client
	Rabbit   *helpers.RabbitPublisher
}

// New wires the account service from cfg and the already-connected infrastructure.
func New(cfg *config.Config, logger *logrus.Logger, d Deps) *Container {
	if d.Audit == nil {
		d.Audit = repository.NopAuditLog{}
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		Users:    d.Users,
		Audit:    d.Audit,
		Notifier: d.Notifier,
		Redis:    d.Redis,
		Rabbit:   d.Rabbit,
		Tokens:   helpers.NewJWTManager(cfg.TokenSecret),
		Hasher:   helpers.NewBcryptHasher(cfg.BcryptCost),
		Cookies:  helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
	c.Accounts = application.NewAccountService(c.Users, c.Hasher, c.Tokens, c.Notifier, c.Audit, logger, application.Options{
		AppName:         cfg.AppName,
		UIURL:           cfg.UIURL,
		VerifyTokenTTL:  cfg.VerifyTokenTTL,
		SessionTokenTTL: cfg.SessionTokenTTL,
	})
	return c
}
