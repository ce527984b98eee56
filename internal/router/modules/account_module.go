package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/internal/container"
	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
)

type AccountModule struct {
	Handler *handlers.AccountHandler
}

func NewAccountModule(c *container.Container) *AccountModule {
	return &AccountModule{Handler: handlers.NewAccountHandler(c.Accounts, c.Logger, c.Cookies)}
}

func (m *AccountModule) Name() string { return "account" }

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.PUT("/register", m.Handler.Register)
	users.POST("/verify/:token", m.Handler.VerifyEmail)
	users.POST("/re-verify", m.Handler.ReVerify)
	users.GET("/check-auth", m.Handler.CheckAuth)
	users.POST("/login", m.Handler.Login)
	users.POST("/logout", m.Handler.Logout)
}
