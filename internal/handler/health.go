package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const healthCheckTimeout = 2 * time.Second

type HealthHandler struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	mq   *amqp.Connection
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, mq *amqp.Connection) *HealthHandler {
	return &HealthHandler{pool: pool, rdb: rdb, mq: mq}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports per-dependency status. The local cache going down makes the
// service unready; the remote store and the broker only degrade it, since
// reads and writes fall back to the cache.
func (h *HealthHandler) Readyz(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	pgCtx, pgCancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer pgCancel()
	if err := h.pool.Ping(pgCtx); err != nil {
		checks["postgres"] = "degraded: " + err.Error()
	} else {
		checks["postgres"] = "ok"
	}

	rdCtx, rdCancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer rdCancel()
	if err := h.rdb.Ping(rdCtx).Err(); err != nil {
		checks["redis"] = "down: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["redis"] = "ok"
	}

	if h.mq == nil || h.mq.IsClosed() {
		checks["rabbitmq"] = "degraded: connection closed"
	} else {
		checks["rabbitmq"] = "ok"
	}

	c.JSON(status, checks)
}
