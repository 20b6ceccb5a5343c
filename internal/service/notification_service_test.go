package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/prperemyshlev/platform-services/internal/apperror"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type notificationFixture struct {
	svc       NotificationService
	publisher *mocks.MockPublisher
	sms       *mocks.MockSMSSender
	queue     *mocks.MockQueue
}

func newNotificationFixture(t *testing.T) notificationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := notificationFixture{
		publisher: mocks.NewMockPublisher(ctrl),
		sms:       mocks.NewMockSMSSender(ctrl),
		queue:     mocks.NewMockQueue(ctrl),
	}
	f.svc = NewNotificationService(f.publisher, f.sms, f.queue, zap.NewNop(), nil)
	return f
}

func TestSendEmailPublishesOnTopic(t *testing.T) {
	f := newNotificationFixture(t)

	f.publisher.EXPECT().
		Publish(gomock.Any(), "Email: Welcome", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, message string) (string, error) {
			var decoded map[string]any
			require.NoError(t, json.Unmarshal([]byte(message), &decoded))
			assert.Equal(t, "email", decoded["type"])
			assert.Equal(t, "ada@example.com", decoded["to"])
			assert.Nil(t, decoded["template"])
			return "msg-1", nil
		})

	id, err := f.svc.SendEmail(context.Background(), &dto.EmailNotificationRequest{
		To:      "ada@example.com",
		Subject: "Welcome",
		Body:    "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
}

func TestSendEmailSinkFailureIsServiceError(t *testing.T) {
	f := newNotificationFixture(t)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("throttled"))

	_, err := f.svc.SendEmail(context.Background(), &dto.EmailNotificationRequest{To: "a@example.com", Subject: "s", Body: "b"})
	assert.True(t, apperror.Is(err, apperror.KindService))
}

func TestSendSMS(t *testing.T) {
	f := newNotificationFixture(t)
	f.sms.EXPECT().SendSMS(gomock.Any(), "+14155550100", "code 1234").Return("sms-1", nil)

	id, err := f.svc.SendSMS(context.Background(), &dto.SMSNotificationRequest{Phone: "+14155550100", Message: "code 1234"})
	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
}

func TestSendPushDefaultsData(t *testing.T) {
	f := newNotificationFixture(t)

	f.queue.EXPECT().
		Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, body string) (string, error) {
			assert.JSONEq(t, `{"type":"push","user_id":"u1","title":"Hi","body":"There","data":{}}`, body)
			return "push-1", nil
		})

	id, err := f.svc.SendPush(context.Background(), &dto.PushNotificationRequest{UserID: "u1", Title: "Hi", Body: "There"})
	require.NoError(t, err)
	assert.Equal(t, "push-1", id)
}

func TestSendBatchIsFailSoft(t *testing.T) {
	f := newNotificationFixture(t)

	gomock.InOrder(
		f.queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("m1", nil),
		f.queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("queue unavailable")),
		f.queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("m3", nil),
	)

	resp, err := f.svc.SendBatch(context.Background(), &dto.BatchNotificationRequest{
		Notifications: []map[string]any{{"type": "push"}, {"type": "push"}, {"type": "push"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2/3 notifications queued", resp.Message)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, dto.BatchItemResult{Status: BatchStatusQueued, MessageID: "m1"}, resp.Results[0])
	assert.Equal(t, BatchStatusFailed, resp.Results[1].Status)
	assert.Equal(t, "queue unavailable", resp.Results[1].Error)
	assert.Equal(t, "m3", resp.Results[2].MessageID)
}

func TestSendBatchRejectsOversizedBatch(t *testing.T) {
	f := newNotificationFixture(t)

	notifications := make([]map[string]any, dto.MaxBatchNotifications+1)
	_, err := f.svc.SendBatch(context.Background(), &dto.BatchNotificationRequest{Notifications: notifications})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUnconfiguredSinkIsServiceError(t *testing.T) {
	svc := NewNotificationService(nil, nil, nil, zap.NewNop(), nil)

	_, err := svc.SendSMS(context.Background(), &dto.SMSNotificationRequest{Phone: "+14155550100", Message: "x"})
	assert.True(t, apperror.Is(err, apperror.KindService))
}
