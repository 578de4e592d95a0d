package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"rics-valuation/internal/middleware"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected     = "connected"
	StatusDisconnected  = "disconnected"
	StatusError         = "error"
	StatusNotConfigured = "not_configured"
)

var processStart = time.Now()

// StorePinger is the report store backend. If nil, storage is reported as disconnected.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// CollectResult is the /health/json payload.
type CollectResult struct {
	Status         string               `json:"status"`
	Runtime        RuntimeInfo          `json:"runtime"`
	Traffic        TrafficInfo          `json:"traffic"`
	Dependencies   map[string]DepStatus `json:"dependencies"`
	ActiveSessions int                  `json:"activeWizardSessions"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocBytes uint64 `json:"allocBytes"`
	HeapInuse  uint64 `json:"heapInuse"`
	Alloc      string `json:"alloc"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status  string      `json:"status"`
	Backend string      `json:"backend,omitempty"`
	PingMs  interface{} `json:"pingMs"`
}

// CollectHealth pings the report store and, when configured, Redis, and
// reads the traffic counters HealthMarker keeps there. Redis is optional:
// without it the status depends on the store alone.
func CollectHealth(ctx context.Context, rdb *redis.Client, store StorePinger, backend string) CollectResult {
	result := CollectResult{
		Dependencies: make(map[string]DepStatus),
	}

	storeStatus := StatusDisconnected
	var storePingMs *int64
	if store != nil {
		start := time.Now()
		if err := store.Ping(ctx); err == nil {
			ms := time.Since(start).Milliseconds()
			storePingMs = &ms
			storeStatus = StatusConnected
		} else {
			storeStatus = StatusError
		}
	}
	result.Dependencies["store"] = DepStatus{Status: storeStatus, Backend: backend, PingMs: storePingMs}

	redisStatus := StatusNotConfigured
	var redisPingMs *int64
	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startTimeMs := processStart.UnixMilli()

	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisPingMs = &ms
			redisStatus = StatusConnected
			startTimeMs = readTraffic(ctx, rdb, &stats, startTimeMs)
		} else {
			redisStatus = StatusError
		}
	}
	result.Dependencies["redis"] = DepStatus{Status: redisStatus, PingMs: redisPingMs}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{AllocBytes: m.Alloc, HeapInuse: m.HeapInuse, Alloc: humanize.Bytes(m.Alloc)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	result.Traffic = stats

	if storeStatus == StatusConnected && redisStatus != StatusError {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// readTraffic fills stats from the shared counters and returns the recorded
// start time, setting it when absent.
func readTraffic(ctx context.Context, rdb *redis.Client, stats *TrafficInfo, startTimeMs int64) int64 {
	totalReq, _ := rdb.Get(ctx, middleware.KeyReqTotal).Result()
	totalErr, _ := rdb.Get(ctx, middleware.KeyReqErrors).Result()
	totalTime, _ := rdb.Get(ctx, middleware.KeyResTime).Result()
	resCount, _ := rdb.Get(ctx, middleware.KeyResCount).Result()
	startTimeStr, _ := rdb.Get(ctx, middleware.KeyStartTime).Result()
	lastReqStr, _ := rdb.Get(ctx, middleware.KeyLastReq).Result()

	if startTimeStr != "" {
		if t, err := strconv.ParseInt(startTimeStr, 10, 64); err == nil {
			startTimeMs = t
		}
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(totalReq)
	stats.FailedCount, _ = strconv.Atoi(totalErr)
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(totalTime, 64)
	countSum, _ := strconv.Atoi(resCount)
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if lastReqStr != "" {
		var lastReq map[string]interface{}
		_ = json.Unmarshal([]byte(lastReqStr), &lastReq)
		stats.LastRequest = lastReq
	}
	return startTimeMs
}
