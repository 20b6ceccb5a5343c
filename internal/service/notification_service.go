package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prperemyshlev/platform-services/internal/apperror"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.uber.org/zap"
)

// Notification channels
const (
	channelEmail = "email"
	channelSMS   = "sms"
	channelPush  = "push"
	channelBatch = "batch"
)

// Batch item statuses
const (
	BatchStatusQueued = "queued"
	BatchStatusFailed = "failed"
)

var errSinkNotConfigured = errors.New("sink not configured")

// notificationService implements NotificationService interface
type notificationService struct {
	publisher ports.Publisher
	sms       ports.SMSSender
	queue     ports.Queue
	logger    *zap.Logger
	metrics   *observability.Instruments
}

// NewNotificationService creates a new notification service. Any sink may be
// nil, in which case requests needing it fail with a ServiceError.
func NewNotificationService(
	publisher ports.Publisher,
	sms ports.SMSSender,
	queue ports.Queue,
	logger *zap.Logger,
	metrics *observability.Instruments,
) NotificationService {
	return &notificationService{
		publisher: publisher,
		sms:       sms,
		queue:     queue,
		logger:    logger.Named("notifications"),
		metrics:   metrics,
	}
}

type emailMessage struct {
	Type     string  `json:"type"`
	To       string  `json:"to"`
	Subject  string  `json:"subject"`
	Body     string  `json:"body"`
	Template *string `json:"template"`
}

type pushMessage struct {
	Type   string         `json:"type"`
	UserID string         `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data"`
}

// SendEmail publishes an email notification on the topic
func (s *notificationService) SendEmail(ctx context.Context, req *dto.EmailNotificationRequest) (string, error) {
	if s.publisher == nil {
		return "", s.fail(ctx, channelEmail, "failed to send email", errSinkNotConfigured)
	}

	body, err := json.Marshal(emailMessage{
		Type:     channelEmail,
		To:       req.To,
		Subject:  req.Subject,
		Body:     req.Body,
		Template: req.Template,
	})
	if err != nil {
		return "", s.fail(ctx, channelEmail, "failed to encode email", err)
	}

	id, err := s.publisher.Publish(ctx, "Email: "+req.Subject, string(body))
	if err != nil {
		return "", s.fail(ctx, channelEmail, "failed to send email", err)
	}

	s.logger.Info("email notification queued", zap.String("message_id", id))
	s.metrics.NotificationSent(ctx, channelEmail, observability.OutcomeSuccess)

	return id, nil
}

// SendSMS sends a transactional text message
func (s *notificationService) SendSMS(ctx context.Context, req *dto.SMSNotificationRequest) (string, error) {
	if s.sms == nil {
		return "", s.fail(ctx, channelSMS, "failed to send SMS", errSinkNotConfigured)
	}

	id, err := s.sms.SendSMS(ctx, req.Phone, req.Message)
	if err != nil {
		return "", s.fail(ctx, channelSMS, "failed to send SMS", err)
	}

	s.logger.Info("SMS notification sent", zap.String("message_id", id))
	s.metrics.NotificationSent(ctx, channelSMS, observability.OutcomeSuccess)

	return id, nil
}

// SendPush queues a push notification
func (s *notificationService) SendPush(ctx context.Context, req *dto.PushNotificationRequest) (string, error) {
	if s.queue == nil {
		return "", s.fail(ctx, channelPush, "failed to queue push notification", errSinkNotConfigured)
	}

	data := req.Data
	if data == nil {
		data = map[string]any{}
	}

	body, err := json.Marshal(pushMessage{
		Type:   channelPush,
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Data:   data,
	})
	if err != nil {
		return "", s.fail(ctx, channelPush, "failed to encode push notification", err)
	}

	id, err := s.queue.Send(ctx, string(body))
	if err != nil {
		return "", s.fail(ctx, channelPush, "failed to queue push notification", err)
	}

	s.logger.Info("push notification queued", zap.String("message_id", id))
	s.metrics.NotificationSent(ctx, channelPush, observability.OutcomeSuccess)

	return id, nil
}

// SendBatch queues every notification independently. A failed item does not
// stop the rest.
func (s *notificationService) SendBatch(ctx context.Context, req *dto.BatchNotificationRequest) (*dto.BatchNotificationResponse, error) {
	if len(req.Notifications) > dto.MaxBatchNotifications {
		return nil, apperror.Validation(
			fmt.Sprintf("Maximum %d notifications per batch", dto.MaxBatchNotifications), nil)
	}

	if s.queue == nil {
		return nil, s.fail(ctx, channelBatch, "failed to queue batch", errSinkNotConfigured)
	}

	results := make([]dto.BatchItemResult, 0, len(req.Notifications))
	queued := 0

	for _, notification := range req.Notifications {
		body, err := json.Marshal(notification)
		if err != nil {
			results = append(results, dto.BatchItemResult{Status: BatchStatusFailed, Error: err.Error()})
			continue
		}

		id, err := s.queue.Send(ctx, string(body))
		if err != nil {
			s.logger.Warn("batch item failed", zap.Error(err))
			s.metrics.NotificationSent(ctx, channelBatch, observability.OutcomeError)
			results = append(results, dto.BatchItemResult{Status: BatchStatusFailed, Error: err.Error()})
			continue
		}

		queued++
		s.metrics.NotificationSent(ctx, channelBatch, observability.OutcomeSuccess)
		results = append(results, dto.BatchItemResult{Status: BatchStatusQueued, MessageID: id})
	}

	return &dto.BatchNotificationResponse{
		Message: fmt.Sprintf("%d/%d notifications queued", queued, len(req.Notifications)),
		Results: results,
	}, nil
}

func (s *notificationService) fail(ctx context.Context, channel, message string, err error) error {
	s.logger.Error(message, zap.String("channel", channel), zap.Error(err))
	s.metrics.NotificationSent(ctx, channel, observability.OutcomeError)
	return apperror.Service(message, err)
}
