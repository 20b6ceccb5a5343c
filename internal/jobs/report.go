package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Report is the daily utilization report
type Report struct {
	Date        string         `json:"date"`
	Environment string         `json:"environment"`
	Metrics     map[string]any `json:"metrics"`
	GeneratedAt string         `json:"generated_at"`
}

const reportWindow = 24 * time.Hour

func (r *Runner) report(ctx context.Context) (any, error) {
	end := r.now().UTC()
	start := end.Add(-reportWindow)

	metrics := map[string]any{}
	if r.deps.Stats != nil {
		stats, err := r.deps.Stats.ClusterCPU(ctx, r.settings.Cluster, start, end)
		switch {
		case err != nil:
			r.logger.Warn("could not get ECS metrics", zap.Error(err))
		case stats != nil:
			metrics["ecs_cpu_avg"] = stats.Average
			metrics["ecs_cpu_max"] = stats.Maximum
		}
	}

	report := Report{
		Date:        start.Format(time.DateOnly),
		Environment: r.settings.Environment,
		Metrics:     metrics,
		GeneratedAt: end.Format(time.RFC3339),
	}

	if r.deps.Notifier != nil {
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		subject := fmt.Sprintf("Daily Report - %s - %s", report.Environment, report.Date)
		if _, err := r.deps.Notifier.Publish(ctx, subject, string(body)); err != nil {
			return nil, fmt.Errorf("failed to publish report: %w", err)
		}
	}

	r.logger.Info("report generated", zap.String("date", report.Date), zap.Any("metrics", metrics))
	return report, nil
}
