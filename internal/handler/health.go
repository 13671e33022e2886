package handler

import (
	"net/http"
	"time"

	"feedstock/internal/infra"
	"feedstock/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports liveness plus dependency status: postgres, redis and
// the alert-webhook circuit breaker state.
type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
	cb  *infra.CircuitBreaker
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, cb: cb}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK

	dbStatus := "ok"
	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "ok"
	var alertsDLQ, emailDLQ int64
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "down"
		status = http.StatusServiceUnavailable
	} else {
		alertsDLQ, _ = worker.DLQLength(ctx, h.rdb, worker.QueueAlerts)
		emailDLQ, _ = worker.DLQLength(ctx, h.rdb, worker.QueueEmail)
	}

	c.JSON(status, gin.H{
		"status":        map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"database":      dbStatus,
		"redis":         redisStatus,
		"alert_breaker": h.cb.State().String(),
		"dlq": gin.H{
			"alerts": alertsDLQ,
			"email":  emailDLQ,
		},
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}
