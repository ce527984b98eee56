package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/response"
)

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = helpers.DefaultDeadLetterMax
)

// DeadLetterLister reads back failed email jobs.
type DeadLetterLister interface {
	Recent(ctx context.Context, n int64) ([]helpers.DeadLetter, error)
}

type DeadLetterHandler struct {
	Store DeadLetterLister
}

func NewDeadLetterHandler(store DeadLetterLister) *DeadLetterHandler {
	return &DeadLetterHandler{Store: store}
}

// List returns the newest dead letters; ?limit= is clamped to [1, 1000].
func (h *DeadLetterHandler) List(c *gin.Context) {
	limit := defaultDeadLetterLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error[[]helpers.DeadLetter](c, http.StatusBadRequest, "invalid limit", gin.H{"limit": v})
			return
		}
		limit = min(n, maxDeadLetterLimit)
	}
	items, err := h.Store.Recent(c.Request.Context(), int64(limit))
	if err != nil {
		response.Error[[]helpers.DeadLetter](c, http.StatusServiceUnavailable, "dead letters unavailable", err.Error())
		return
	}
	response.Success(c, http.StatusOK, items, "dead letters", gin.H{"count": len(items), "limit": limit})
}
