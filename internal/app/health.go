package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

var processStart = time.Now()

// Check is a named readiness probe of one dependency
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthChecker struct {
	service string
	checks  []Check
	now     func() time.Time
}

func NewHealthChecker(service string, checks ...Check) *HealthChecker {
	return &HealthChecker{
		service: service,
		checks:  checks,
		now:     time.Now,
	}
}

// Liveness reports that the process is up; it never touches dependencies
func (h *HealthChecker) Liveness(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        h.service,
		"timestamp":      now.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(now.Sub(processStart).Seconds()),
	})
}

// Readiness runs every check concurrently and answers 503 if any fails
func (h *HealthChecker) Readiness(c *gin.Context) {
	results, ok := h.check(c.Request.Context())

	status, code := "ready", http.StatusOK
	if !ok {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.service,
		"checks":  results,
	})
}

func (h *HealthChecker) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(h.checks))
		ok      = true
	)

	for _, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := check.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[check.Name] = err.Error()
				ok = false
				return
			}
			results[check.Name] = "ok"
		}()
	}
	wg.Wait()

	return results, ok
}
