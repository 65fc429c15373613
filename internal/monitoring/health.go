package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dil-najha/Performance-Insights-sub001/internal/cache"
	"github.com/dil-najha/Performance-Insights-sub001/internal/storage"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the outcome of a single checker.
type HealthCheck struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration_ms"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Critical  bool                   `json:"critical"`
}

type HealthResponse struct {
	Status     HealthStatus           `json:"status"`
	Version    string                 `json:"version"`
	Uptime     time.Duration          `json:"uptime_seconds"`
	Timestamp  time.Time              `json:"timestamp"`
	Checks     map[string]HealthCheck `json:"checks"`
	Summary    HealthSummary          `json:"summary"`
	SystemInfo SystemInfo             `json:"system_info"`
}

type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Critical  int `json:"critical"`
}

type SystemInfo struct {
	GoVersion    string    `json:"go_version"`
	OS           string    `json:"os"`
	Arch         string    `json:"arch"`
	NumCPU       int       `json:"num_cpu"`
	NumGoroutine int       `json:"num_goroutine"`
	MemoryMB     uint64    `json:"memory_mb"`
	StartTime    time.Time `json:"start_time"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) HealthCheck
	IsCritical() bool
}

type HealthManager struct {
	mu          sync.RWMutex
	checkers    []HealthChecker
	startTime   time.Time
	version     string
	lastResults map[string]HealthCheck
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		startTime:   time.Now(),
		version:     version,
		lastResults: make(map[string]HealthCheck),
	}
}

func (hm *HealthManager) RegisterChecker(checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers = append(hm.checkers, checker)
}

// CheckHealth runs every checker. Any unhealthy check makes the service
// unhealthy; otherwise any degraded check makes it degraded.
func (hm *HealthManager) CheckHealth(ctx context.Context) HealthResponse {
	hm.mu.RLock()
	checkers := append([]HealthChecker(nil), hm.checkers...)
	hm.mu.RUnlock()

	checks := make(map[string]HealthCheck, len(checkers))
	summary := HealthSummary{}
	overallStatus := HealthStatusHealthy

	for _, checker := range checkers {
		start := time.Now()
		check := checker.Check(ctx)
		check.Name = checker.Name()
		check.Duration = time.Since(start)
		check.Timestamp = time.Now()
		check.Critical = checker.IsCritical()
		checks[check.Name] = check

		summary.Total++
		switch check.Status {
		case HealthStatusHealthy:
			summary.Healthy++
		case HealthStatusDegraded:
			summary.Degraded++
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		default:
			summary.Unhealthy++
			if check.Critical {
				summary.Critical++
				overallStatus = HealthStatusUnhealthy
			} else if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	hm.mu.Lock()
	for name, check := range checks {
		hm.lastResults[name] = check
	}
	hm.mu.Unlock()

	return HealthResponse{
		Status:     overallStatus,
		Version:    hm.version,
		Uptime:     time.Since(hm.startTime),
		Timestamp:  time.Now(),
		Checks:     checks,
		Summary:    summary,
		SystemInfo: hm.systemInfo(),
	}
}

// LastResults returns a copy of the most recent result of every checker.
func (hm *HealthManager) LastResults() map[string]HealthCheck {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	results := make(map[string]HealthCheck, len(hm.lastResults))
	for name, check := range hm.lastResults {
		results[name] = check
	}
	return results
}

func (hm *HealthManager) systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		MemoryMB:     m.Alloc / 1024 / 1024,
		StartTime:    hm.startTime,
	}
}

// HistoryHealthChecker reads the history store statistics. The store is
// critical: without it saved comparisons cannot be served.
type HistoryHealthChecker struct {
	store   storage.HistoryStore
	metrics *Metrics
}

func NewHistoryHealthChecker(store storage.HistoryStore, metrics *Metrics) *HistoryHealthChecker {
	return &HistoryHealthChecker{store: store, metrics: metrics}
}

func (h *HistoryHealthChecker) Name() string     { return "history" }
func (h *HistoryHealthChecker) IsCritical() bool { return true }

func (h *HistoryHealthChecker) Check(ctx context.Context) HealthCheck {
	start := time.Now()
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return HealthCheck{
			Status:  HealthStatusUnhealthy,
			Message: fmt.Sprintf("History store unavailable: %v", err),
			Details: map[string]interface{}{"error": err.Error()},
		}
	}

	if h.metrics != nil {
		h.metrics.HistoryRecords.Set(float64(stats.Records))
	}

	status := HealthStatusHealthy
	duration := time.Since(start)
	if duration > 500*time.Millisecond {
		status = HealthStatusDegraded
	}

	details := map[string]interface{}{
		"records":           stats.Records,
		"total_size":        stats.TotalSize,
		"operation_time_ms": duration.Milliseconds(),
	}
	if stats.Cache != nil {
		details["cache_hit_ratio"] = stats.Cache.HitRatio
	}

	return HealthCheck{
		Status:  status,
		Message: "History store is operational",
		Details: details,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// CacheHealthChecker reports the result cache. A failing cache only degrades
// the service because comparisons still run without it.
type CacheHealthChecker struct {
	cache cache.Cache
}

func NewCacheHealthChecker(c cache.Cache) *CacheHealthChecker {
	return &CacheHealthChecker{cache: c}
}

func (c *CacheHealthChecker) Name() string     { return "cache" }
func (c *CacheHealthChecker) IsCritical() bool { return false }

func (c *CacheHealthChecker) Check(ctx context.Context) HealthCheck {
	if p, ok := c.cache.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: fmt.Sprintf("Cache backend unreachable: %v", err),
				Details: map[string]interface{}{"error": err.Error()},
			}
		}
	}

	stats := c.cache.Stats()
	return HealthCheck{
		Status:  HealthStatusHealthy,
		Message: "Cache is operational",
		Details: map[string]interface{}{
			"backend":   stats.Backend,
			"size":      stats.Size,
			"hit_ratio": stats.HitRatio,
			"errors":    stats.Errors,
		},
	}
}

type MemoryHealthChecker struct {
	maxMemoryMB uint64
}

func NewMemoryHealthChecker(maxMemoryMB uint64) *MemoryHealthChecker {
	return &MemoryHealthChecker{maxMemoryMB: maxMemoryMB}
}

func (m *MemoryHealthChecker) Name() string     { return "memory" }
func (m *MemoryHealthChecker) IsCritical() bool { return false }

func (m *MemoryHealthChecker) Check(ctx context.Context) HealthCheck {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	allocMB := memStats.Alloc / 1024 / 1024
	status := HealthStatusHealthy
	message := "Memory usage is normal"

	if m.maxMemoryMB > 0 {
		if allocMB > m.maxMemoryMB {
			status = HealthStatusUnhealthy
			message = fmt.Sprintf("Memory usage exceeds limit (%dMB > %dMB)", allocMB, m.maxMemoryMB)
		} else if allocMB > m.maxMemoryMB*80/100 {
			status = HealthStatusDegraded
			message = fmt.Sprintf("Memory usage is high (%dMB)", allocMB)
		}
	}

	return HealthCheck{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"alloc_mb": allocMB,
			"sys_mb":   memStats.Sys / 1024 / 1024,
			"num_gc":   memStats.NumGC,
		},
	}
}

type GoroutineHealthChecker struct {
	maxGoroutines int
}

func NewGoroutineHealthChecker(maxGoroutines int) *GoroutineHealthChecker {
	return &GoroutineHealthChecker{maxGoroutines: maxGoroutines}
}

func (g *GoroutineHealthChecker) Name() string     { return "goroutines" }
func (g *GoroutineHealthChecker) IsCritical() bool { return false }

func (g *GoroutineHealthChecker) Check(ctx context.Context) HealthCheck {
	n := runtime.NumGoroutine()
	status := HealthStatusHealthy
	message := "Goroutine count is normal"

	if g.maxGoroutines > 0 {
		if n > g.maxGoroutines {
			status = HealthStatusUnhealthy
			message = fmt.Sprintf("Too many goroutines (%d > %d)", n, g.maxGoroutines)
		} else if n > g.maxGoroutines*80/100 {
			status = HealthStatusDegraded
			message = fmt.Sprintf("High goroutine count (%d)", n)
		}
	}

	return HealthCheck{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{"count": n, "limit": g.maxGoroutines},
	}
}
