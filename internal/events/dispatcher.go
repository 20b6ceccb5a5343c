package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/prperemyshlev/platform-services/internal/apperror"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Detail statuses
const (
	StatusSuccess = "success"
	StatusIgnored = "ignored"
	StatusFailed  = "failed"
)

// Message is one queued envelope; Body is expected to be a JSON object
type Message struct {
	ID   string
	Body string
}

// Detail is the per-envelope outcome
type Detail struct {
	Type      string `json:"type,omitempty"`
	Status    string `json:"status"`
	Result    Result `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// BatchResult aggregates a dispatched batch. Details follow input order.
type BatchResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Details   []Detail `json:"details"`
}

// Dispatcher routes envelopes through a Registry
type Dispatcher struct {
	registry    *Registry
	logger      *zap.Logger
	metrics     *observability.Instruments
	concurrency int
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithConcurrency bounds how many envelopes are handled at once. Values
// below 1 mean sequential handling.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n < 1 {
			n = 1
		}
		d.concurrency = n
	}
}

// WithInstruments counts dispatched envelopes
func WithInstruments(metrics *observability.Instruments) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// NewDispatcher creates a dispatcher over registry
func NewDispatcher(registry *Registry, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		logger:      logger.Named("events"),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles every message of the batch. It never fails as a whole:
// malformed bodies, handler errors and handler panics become failed details.
func (d *Dispatcher) Dispatch(ctx context.Context, batch []Message) BatchResult {
	d.logger.Info("processing batch", zap.Int("records", len(batch)))

	details := make([]Detail, len(batch))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, msg := range batch {
		g.Go(func() error {
			details[i] = d.dispatchOne(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Details: details}
	for _, detail := range details {
		if detail.Status == StatusFailed {
			result.Failed++
		} else {
			result.Processed++
		}
	}

	d.logger.Info("batch completed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)

	return result
}

func (d *Dispatcher) dispatchOne(ctx context.Context, msg Message) (detail Detail) {
	payload, err := ParsePayload(msg.Body)
	if err != nil {
		d.logger.Error("invalid message body", zap.String("message_id", msg.ID), zap.Error(err))
		detail = failedDetail(string(KindUnknown), err)
		d.metrics.EventDispatched(ctx, string(KindUnknown), detail.Status)
		return detail
	}

	eventType := payload.Type()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("message_id", msg.ID),
				zap.String("type", eventType),
				zap.Any("panic", r),
			)
			detail = failedDetail(eventType, fmt.Errorf("handler panicked: %v", r))
		}
		d.metrics.EventDispatched(ctx, string(ParseKind(eventType)), detail.Status)
	}()

	handler, known := d.registry.Lookup(ParseKind(eventType))
	if !known {
		d.logger.Warn("unknown event type", zap.String("message_id", msg.ID), zap.String("type", eventType))
	} else {
		d.logger.Info("processing event", zap.String("message_id", msg.ID), zap.String("type", eventType))
	}

	res, err := handler.Handle(ctx, payload)
	if err != nil {
		d.logger.Error("error processing event",
			zap.String("message_id", msg.ID),
			zap.String("type", eventType),
			zap.Error(err),
		)
		return failedDetail(eventType, err)
	}

	status := StatusSuccess
	if !known {
		status = StatusIgnored
	}
	return Detail{Type: eventType, Status: status, Result: res}
}

func failedDetail(eventType string, err error) Detail {
	detail := Detail{
		Type:   eventType,
		Status: StatusFailed,
		Error:  err.Error(),
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		detail.Error = appErr.Message
		detail.ErrorKind = string(appErr.Kind)
	}
	return detail
}
