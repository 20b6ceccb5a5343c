package jobs

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service health statuses
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ServiceHealth is the outcome of one probe
type ServiceHealth struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthReport summarizes a health_check run
type HealthReport struct {
	Services  []ServiceHealth `json:"services"`
	Healthy   int             `json:"healthy"`
	Unhealthy int             `json:"unhealthy"`
}

// healthCheck probes every target in parallel, each with its own timeout
func (r *Runner) healthCheck(ctx context.Context) (any, error) {
	results := make([]ServiceHealth, len(r.settings.Targets))

	var g errgroup.Group
	for i, target := range r.settings.Targets {
		g.Go(func() error {
			results[i] = r.probe(ctx, target.Name, target.URL+"/health")
			return nil
		})
	}
	_ = g.Wait()

	report := HealthReport{Services: results}
	var unhealthy []string
	for _, res := range results {
		if res.Status == StatusHealthy {
			report.Healthy++
		} else {
			unhealthy = append(unhealthy, res.Service)
		}
	}
	report.Unhealthy = len(unhealthy)

	if len(unhealthy) > 0 && r.deps.Notifier != nil {
		subject := fmt.Sprintf("Health Check Alert - %s", r.settings.Environment)
		message := "Unhealthy services: " + strings.Join(unhealthy, ", ")
		if _, err := r.deps.Notifier.Publish(ctx, subject, message); err != nil {
			return nil, fmt.Errorf("failed to publish health alert: %w", err)
		}
	}

	return report, nil
}

func (r *Runner) probe(ctx context.Context, name, url string) ServiceHealth {
	res := ServiceHealth{Service: name, Status: StatusUnhealthy}
	if r.deps.Prober == nil {
		return res
	}

	if r.settings.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.settings.CheckTimeout)
		defer cancel()
	}

	start := r.now()
	err := r.deps.Prober.Probe(ctx, url)
	res.LatencyMS = r.now().Sub(start).Milliseconds()

	if err != nil {
		r.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
		return res
	}

	res.Status = StatusHealthy
	return res
}
