// Package jobs runs the scheduled maintenance and reporting jobs. One job
// runs per invocation; a failing job records a Failed metric and returns
// its error.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/platform-services/internal/config"
	"github.com/prperemyshlev/platform-services/internal/lambdaio"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"go.uber.org/zap"
)

// Job types
const (
	JobCleanup     = "cleanup"
	JobReport      = "report"
	JobHealthCheck = "health_check"
)

// Request is the scheduler payload
type Request struct {
	JobType string `json:"job_type"`
}

// Summary is the body of a successful invocation
type Summary struct {
	JobType         string  `json:"job_type"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	Result          any     `json:"result"`
}

// TokenPurger removes refresh token records that expired before a point in time
type TokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Settings are the static inputs of the jobs
type Settings struct {
	Environment  string
	Cluster      string
	CleanupLimit int32
	Targets      []config.HealthTarget
	CheckTimeout time.Duration
}

// Deps are the collaborators of the jobs. Only Metrics is required; a job
// whose collaborator is nil skips that step.
type Deps struct {
	Metrics  ports.JobMetrics
	Sessions ports.SessionStore
	Tokens   TokenPurger
	Stats    ports.StatsReader
	Notifier ports.Publisher
	Prober   ports.HealthProber
}

type jobFunc func(ctx context.Context) (any, error)

// Runner dispatches a job by type
type Runner struct {
	deps     Deps
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
	jobs     map[string]jobFunc
}

// NewRunner creates a runner
func NewRunner(deps Deps, settings Settings, logger *zap.Logger) *Runner {
	r := &Runner{
		deps:     deps,
		settings: settings,
		logger:   logger.Named("jobs"),
		now:      time.Now,
	}
	r.jobs = map[string]jobFunc{
		JobCleanup:     r.cleanup,
		JobReport:      r.report,
		JobHealthCheck: r.healthCheck,
	}
	return r
}

// Run executes the requested job. An empty job type means cleanup; an
// unknown one completes without doing anything.
func (r *Runner) Run(ctx context.Context, req Request) (lambdaio.Response, error) {
	jobType := req.JobType
	if jobType == "" {
		jobType = JobCleanup
	}

	r.logger.Info("starting scheduled job", zap.String("job_type", jobType))
	start := r.now()

	job, ok := r.jobs[jobType]
	if !ok {
		job = func(context.Context) (any, error) {
			return map[string]string{"status": "unknown_job_type", "job_type": jobType}, nil
		}
	}

	result, err := job(ctx)
	if err != nil {
		r.logger.Error("job failed", zap.String("job_type", jobType), zap.Error(err))
		r.record(ctx, jobType, ports.JobFailed, 0)
		return lambdaio.Response{}, fmt.Errorf("job %s failed: %w", jobType, err)
	}

	duration := r.now().Sub(start)
	r.record(ctx, jobType, ports.JobSuccess, duration)
	r.logger.Info("job completed", zap.String("job_type", jobType), zap.Duration("duration", duration))

	return lambdaio.OK(Summary{
		JobType:         jobType,
		Status:          "completed",
		DurationSeconds: duration.Seconds(),
		Result:          result,
	})
}

// record never fails the job
func (r *Runner) record(ctx context.Context, jobType string, status ports.JobStatus, duration time.Duration) {
	if r.deps.Metrics == nil {
		return
	}
	if err := r.deps.Metrics.RecordJob(ctx, jobType, status, duration); err != nil {
		r.logger.Warn("could not put job metric",
			zap.String("job_type", jobType),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
