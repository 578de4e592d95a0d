package middleware

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"rics-valuation/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the shared traffic counters read by the health endpoint.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

// ErrorLogSize caps the number of 5xx entries kept in KeyErrorLog.
const ErrorLogSize = 50

// HealthMarker records request counts and latency in Prometheus and, when
// rdb is non-nil, in Redis (skip /, /health*, /metrics, favicon).
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		ctx := context.Background()
		if rdb != nil {
			b, _ := json.Marshal(map[string]interface{}{
				"time":   start,
				"ip":     c.IP(),
				"path":   c.OriginalURL(),
				"method": c.Method(),
			})
			_, _ = rdb.Set(ctx, KeyLastReq, b, 0).Result()
			_, _ = rdb.Incr(ctx, KeyReqTotal).Result()
		}

		err := resolve(c, c.Next())

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		metrics.HTTPRequests.WithLabelValues(c.Method(), strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Method()).Observe(elapsed.Seconds())

		if rdb == nil {
			return err
		}
		_, _ = rdb.Incr(ctx, KeyResCount).Result()
		_, _ = rdb.IncrByFloat(ctx, KeyResTime, float64(elapsed.Milliseconds())).Result()
		if status >= 500 {
			_, _ = rdb.Incr(ctx, KeyReqErrors).Result()
			entry, _ := json.Marshal(map[string]interface{}{
				"time":     time.Now(),
				"path":     c.OriginalURL(),
				"method":   c.Method(),
				"status":   status,
				"trace_id": GetTraceID(c),
			})
			_, _ = rdb.LPush(ctx, KeyErrorLog, entry).Result()
			_, _ = rdb.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1).Result()
		}
		return err
	}
}

// resolve runs the app error handler now so the response status is final
// before it is recorded.
func resolve(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	if herr := c.App().ErrorHandler(c, err); herr != nil {
		_ = c.SendStatus(fiber.StatusInternalServerError)
	}
	return nil
}
