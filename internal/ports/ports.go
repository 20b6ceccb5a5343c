// Package ports declares the outbound capabilities the services and
// functions depend on. Concrete AWS-backed implementations live in pkg/cloud.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/ports.go -package=mocks

import (
	"context"
	"time"
)

// Publisher publishes a message on the notification topic and returns its id
type Publisher interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// SMSSender sends a transactional text message to an E.164 phone number
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// Queue enqueues a message body and returns its id
type Queue interface {
	Send(ctx context.Context, body string) (string, error)
}

// JobStatus is the outcome dimension of a job metric
type JobStatus string

const (
	JobSuccess JobStatus = "Success"
	JobFailed  JobStatus = "Failed"
)

// JobMetrics records scheduled job executions
type JobMetrics interface {
	RecordJob(ctx context.Context, jobType string, status JobStatus, duration time.Duration) error
}

// SessionStore removes expired sessions. The returned count is valid even
// when err is non-nil.
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int32) (int, error)
}

// CPUStats is a CPU utilization summary
type CPUStats struct {
	Average float64 `json:"ecs_cpu_avg"`
	Maximum float64 `json:"ecs_cpu_max"`
}

// StatsReader reads cluster utilization statistics. A nil result with a
// nil error means no datapoints were available.
type StatsReader interface {
	ClusterCPU(ctx context.Context, cluster string, start, end time.Time) (*CPUStats, error)
}

// ObjectInfo is object metadata
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// ObjectStore is the subset of object storage the image processor needs
type ObjectStore interface {
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Tag(ctx context.Context, bucket, key string, tags map[string]string) error
}

// HealthProber checks a single service endpoint
type HealthProber interface {
	Probe(ctx context.Context, url string) error
}
