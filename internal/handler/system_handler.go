package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/response"
)

const healthTimeout = 2 * time.Second

// PingFunc checks that a backing store answers.
type PingFunc func(ctx context.Context) error

// SystemHandler reports service health and Go runtime figures.
type SystemHandler struct {
	pingStorage PingFunc
	rdb         *redis.Client
	startTime   time.Time
	log         zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. A nil rdb is reported as a
// disabled cache, not as a failure.
func NewSystemHandler(pingStorage PingFunc, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pingStorage: pingStorage,
		rdb:         rdb,
		startTime:   time.Now(),
		log:         log.With().Str("component", "system_handler").Logger(),
	}
}

type runtimeStats struct {
	GoVersion  string `json:"goVersion"`
	NumCPU     int    `json:"numCpu"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	NumGC      uint32 `json:"numGc"`
}

// Health godoc
// GET /health
// Pings storage (and Redis when configured). Storage failure answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	storage := "up"
	if h.pingStorage != nil {
		if err := h.pingStorage(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Storage ping failed")
			storage = "down"
		}
	}

	cache := "disabled"
	if h.rdb != nil {
		cache = "up"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			cache = "down"
		}
	}

	if storage != "up" {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStorageUnavailable)
		return
	}

	response.Success(c, "ok", gin.H{
		"storage": storage,
		"cache":   cache,
		"uptime":  formatDuration(time.Since(h.startTime)),
		"runtime": collectRuntime(),
	})
}

func collectRuntime() runtimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return runtimeStats{
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
	}
}

// ---------- Helpers ----------

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
