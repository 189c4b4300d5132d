package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vinshon/buildxup-backend/internal/http/respond"
)

const healthProbeTimeout = 5 * time.Second

// HealthHandler reports service liveness backed by a database probe.
type HealthHandler struct {
	pool *pgxpool.Pool
}

// NewHealthHandler wires the handler.
func NewHealthHandler(pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Check handles GET /healthz. A probe that does not answer within the
// timeout counts as a failure.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		respond.Fail(c, http.StatusServiceUnavailable, "Database unreachable")
		return
	}
	respond.Success(c, http.StatusOK, "OK", gin.H{"database": "up"})
}
