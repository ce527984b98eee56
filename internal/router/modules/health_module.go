package modules

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/internal/container"
	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
)

type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(c *container.Container) *HealthModule {
	checks := []handlers.Check{{Name: "store", Fn: c.Users.Ping}}
	if c.Redis != nil {
		rdb := c.Redis
		checks = append(checks, handlers.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if c.Rabbit != nil {
		pub := c.Rabbit
		checks = append(checks, handlers.Check{Name: "rabbitmq", Fn: func(context.Context) error {
			if !pub.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}
	return &HealthModule{Handler: handlers.NewHealthHandler(checks...)}
}

func (m *HealthModule) Name() string { return "health" }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health/live", m.Handler.Live)
	rg.GET("/health/ready", m.Handler.Ready)
}
