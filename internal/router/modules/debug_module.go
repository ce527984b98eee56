package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/internal/container"
	handlers "github.com/oksasatya/go-account-service/internal/interface/http"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

type DebugModule struct {
	// DeadLetters is nil when redis is not configured.
	DeadLetters *handlers.DeadLetterHandler
}

func NewDebugModule(c *container.Container) *DebugModule {
	m := &DebugModule{}
	if c.Redis != nil {
		m.DeadLetters = handlers.NewDeadLetterHandler(helpers.NewRedisDeadLetters(c.Redis))
	}
	return m
}

func (m *DebugModule) Name() string { return "debug" }

// Register exposes expvar counters (emails_sent, emails_failed, emails_dropped, memstats)
// and, with redis, the dead-letter list.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	if m.DeadLetters != nil {
		rg.GET("/debug/dead-letters", m.DeadLetters.List)
	}
}
