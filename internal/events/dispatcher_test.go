package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/golang/mock/gomock"
	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/prperemyshlev/platform-services/internal/mocks"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newDispatcher(deps Deps, opts ...Option) *Dispatcher {
	deps.Now = func() time.Time { return fixedNow }
	return NewDispatcher(NewDefaultRegistry(deps), zap.NewNop(), opts...)
}

func TestDispatchScenario(t *testing.T) {
	d := newDispatcher(Deps{})

	result := d.Dispatch(context.Background(), []Message{
		{ID: "1", Body: `{"type":"order_created","order_id":"O1","user_id":"U1","total":42}`},
		{ID: "2", Body: `{"type":"bogus"}`},
	})

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Details, 2)

	assert.Equal(t, "order_created", result.Details[0].Type)
	assert.Equal(t, StatusSuccess, result.Details[0].Status)
	assert.Equal(t, Result{"order_id": "O1", "notification_sent": false}, result.Details[0].Result)

	assert.Equal(t, "bogus", result.Details[1].Type)
	assert.Equal(t, StatusIgnored, result.Details[1].Status)
	assert.Equal(t, "ignored", result.Details[1].Result["status"])
	assert.Equal(t, "unknown_event_type", result.Details[1].Result["reason"])
}

func TestDispatchMalformedBodiesDoNotStopTheBatch(t *testing.T) {
	d := newDispatcher(Deps{})

	result := d.Dispatch(context.Background(), []Message{
		{Body: `not json`},
		{Body: `[1,2,3]`},
		{Body: `{"type":"payment_received","order_id":"O9","amount":10.5}`},
	})

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Details, 3)

	assert.Equal(t, StatusFailed, result.Details[0].Status)
	assert.Equal(t, "unknown", result.Details[0].Type)
	assert.Equal(t, "Invalid JSON", result.Details[0].Error)
	assert.Equal(t, "malformed_payload", result.Details[0].ErrorKind)

	assert.Equal(t, "unknown", result.Details[1].Type)
	assert.Equal(t, "payload must be a JSON object", result.Details[1].Error)
	assert.Equal(t, "malformed_payload", result.Details[1].ErrorKind)

	assert.Equal(t, StatusSuccess, result.Details[2].Status)
	assert.Equal(t, true, result.Details[2].Result["payment_processed"])
}

func TestDispatchMissingTypeIsIgnored(t *testing.T) {
	d := newDispatcher(Deps{})

	result := d.Dispatch(context.Background(), []Message{{Body: `{"order_id":"O1"}`}, {Body: `{"type":7}`}})

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)
	for _, detail := range result.Details {
		assert.Equal(t, "unknown", detail.Type)
		assert.Equal(t, StatusIgnored, detail.Status)
	}
}

func TestDispatchLiteralUnknownTypeIsIgnored(t *testing.T) {
	result := newDispatcher(Deps{}).Dispatch(context.Background(), []Message{{Body: `{"type":"unknown"}`}})

	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, StatusIgnored, result.Details[0].Status)
	assert.Equal(t, "unknown_event_type", result.Details[0].Result["reason"])
}

func TestRegisterRejectsUnreachableKinds(t *testing.T) {
	r := NewRegistry()
	noop := HandlerFunc(func(context.Context, Payload) (Result, error) { return nil, nil })

	assert.Panics(t, func() { r.Register(KindUnknown, noop) })
	assert.Panics(t, func() { r.Register(Kind("refund"), noop) })
	assert.NotPanics(t, func() { r.Register(KindPaymentReceived, noop) })
}

func TestDispatchEmptyBatch(t *testing.T) {
	result := newDispatcher(Deps{}).Dispatch(context.Background(), nil)

	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Details)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed":0,"failed":0,"details":[]}`, string(raw))
}

func TestDispatchHandlerErrorAndPanicAreIsolated(t *testing.T) {
	r := NewRegistry()
	r.Register(KindOrderCreated, HandlerFunc(func(context.Context, Payload) (Result, error) {
		return nil, errors.New("inventory unavailable")
	}))
	r.Register(KindOrderShipped, HandlerFunc(func(context.Context, Payload) (Result, error) {
		panic("nil map")
	}))
	r.Register(KindPaymentReceived, HandlerFunc(func(context.Context, Payload) (Result, error) {
		return Result{"ok": true}, nil
	}))
	d := NewDispatcher(r, zap.NewNop())

	result := d.Dispatch(context.Background(), []Message{
		{Body: `{"type":"order_created"}`},
		{Body: `{"type":"order_shipped"}`},
		{Body: `{"type":"payment_received"}`},
	})

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, "inventory unavailable", result.Details[0].Error)
	assert.Equal(t, "order_created", result.Details[0].Type)
	assert.Contains(t, result.Details[1].Error, "handler panicked")
	assert.Equal(t, StatusSuccess, result.Details[2].Status)
}

func TestDispatchConcurrentPreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	r := NewRegistry()
	r.Register(KindPaymentReceived, HandlerFunc(func(_ context.Context, p Payload) (Result, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Result{"order_id": p.Get("order_id")}, nil
	}))
	d := NewDispatcher(r, zap.NewNop(), WithConcurrency(4))

	batch := make([]Message, 20)
	for i := range batch {
		batch[i] = Message{Body: fmt.Sprintf(`{"type":"payment_received","order_id":"O%d"}`, i)}
	}

	result := d.Dispatch(context.Background(), batch)

	require.Len(t, result.Details, 20)
	assert.Equal(t, 20, result.Processed)
	for i, detail := range result.Details {
		assert.Equal(t, fmt.Sprintf("O%d", i), detail.Result["order_id"])
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestOrderCreatedPublishesConfirmation(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)

	publisher.EXPECT().
		Publish(gomock.Any(), "Order Confirmation - O1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, message string) (string, error) {
			assert.JSONEq(t, `{
				"type": "order_confirmation",
				"order_id": "O1",
				"user_id": "U1",
				"total": 42,
				"timestamp": "2024-03-01T12:00:00Z"
			}`, message)
			return "msg-1", nil
		})

	result := newDispatcher(Deps{Notifier: publisher}).Dispatch(context.Background(), []Message{
		{Body: `{"type":"order_created","order_id":"O1","user_id":"U1","total":42}`},
	})

	assert.Equal(t, Result{"order_id": "O1", "notification_sent": true}, result.Details[0].Result)
}

func TestOrderShippedDefaultsCarrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)

	publisher.EXPECT().
		Publish(gomock.Any(), "Order Shipped - O2", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, message string) (string, error) {
			assert.JSONEq(t, `{"type":"shipping_notification","order_id":"O2","tracking_number":"TRK1","carrier":"Unknown"}`, message)
			return "msg-2", nil
		})

	result := newDispatcher(Deps{Notifier: publisher}).Dispatch(context.Background(), []Message{
		{Body: `{"type":"order_shipped","order_id":"O2","tracking_number":"TRK1"}`},
	})

	assert.Equal(t, Result{"order_id": "O2", "tracking_number": "TRK1"}, result.Details[0].Result)
}

func TestPublishFailureIsPerItemFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("throttled"))

	result := newDispatcher(Deps{Notifier: publisher}).Dispatch(context.Background(), []Message{
		{Body: `{"type":"user_registered","user_id":"U1","email":"a@example.com"}`},
		{Body: `{"type":"payment_received","order_id":"O1"}`},
	})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Processed)
	assert.Contains(t, result.Details[0].Error, "throttled")
}

func TestUserRegisteredResolvesMissingEmail(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	user := &domain.User{
		ID:           "3f0b8d0e-8f5c-4b7a-9a7e-0c6d1f2e3a4b",
		Email:        "new@example.com",
		PasswordHash: "x",
		IsActive:     true,
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
	require.NoError(t, repos.User.Create(context.Background(), user))

	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().
		Publish(gomock.Any(), welcomeSubject, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, message string) (string, error) {
			assert.JSONEq(t, `{"type":"welcome_email","user_id":"`+user.ID+`","email":"new@example.com"}`, message)
			return "msg-3", nil
		})

	result := newDispatcher(Deps{Notifier: publisher, UserResolver: repos.User}).Dispatch(context.Background(), []Message{
		{Body: `{"type":"user_registered","user_id":"` + user.ID + `"}`},
	})

	assert.Equal(t, Result{"user_id": user.ID, "welcome_sent": true}, result.Details[0].Result)
}

func TestUserRegisteredUnknownUserStillWelcomes(t *testing.T) {
	repos := repository.NewMemoryRepositories()

	result := newDispatcher(Deps{UserResolver: repos.User}).Dispatch(context.Background(), []Message{
		{Body: `{"type":"user_registered","user_id":"missing"}`},
	})

	assert.Equal(t, StatusSuccess, result.Details[0].Status)
	assert.Equal(t, false, result.Details[0].Result["welcome_sent"])
}

func TestHandleSQS(t *testing.T) {
	d := newDispatcher(Deps{})

	resp, err := d.HandleSQS(context.Background(), awsevents.SQSEvent{Records: []awsevents.SQSMessage{
		{MessageId: "m1", Body: `{"type":"payment_received","order_id":"O1","amount":5}`},
		{MessageId: "m2", Body: `{`},
	}})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body BatchResult
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, 1, body.Processed)
	assert.Equal(t, 1, body.Failed)
	assert.Len(t, body.Details, 2)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindOrderCreated, ParseKind("order_created"))
	assert.Equal(t, KindPaymentReceived, ParseKind("payment_received"))
	assert.Equal(t, KindUnknown, ParseKind("Order_Created"))
	assert.Equal(t, KindUnknown, ParseKind(""))
}
