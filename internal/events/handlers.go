package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/platform-services/internal/domain"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"go.uber.org/zap"
)

// UserResolver looks up users by id
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Deps are the capabilities handlers call. Both may be nil: without a
// Notifier no notification is sent; without a UserResolver payloads are
// used as is.
type Deps struct {
	Notifier     ports.Publisher
	UserResolver UserResolver
	Logger       *zap.Logger
	Now          func() time.Time
}

const welcomeSubject = "Welcome to Platform Services!"

// NewDefaultRegistry registers a handler for every known kind
func NewDefaultRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	h := &handlers{deps: deps}
	r := NewRegistry()
	r.Register(KindOrderCreated, HandlerFunc(h.orderCreated))
	r.Register(KindOrderShipped, HandlerFunc(h.orderShipped))
	r.Register(KindUserRegistered, HandlerFunc(h.userRegistered))
	r.Register(KindPaymentReceived, HandlerFunc(h.paymentReceived))
	return r
}

type handlers struct {
	deps Deps
}

func (h *handlers) orderCreated(ctx context.Context, p Payload) (Result, error) {
	orderID := p.Get("order_id")
	userID := p.Get("user_id")
	h.deps.Logger.Info("processing new order", zap.Any("order_id", orderID), zap.Any("user_id", userID))

	sent, err := h.notify(ctx, fmt.Sprintf("Order Confirmation - %v", display(orderID)), map[string]any{
		"type":      "order_confirmation",
		"order_id":  orderID,
		"user_id":   userID,
		"total":     p.GetOr("total", 0),
		"timestamp": h.deps.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	return Result{"order_id": orderID, "notification_sent": sent}, nil
}

func (h *handlers) orderShipped(ctx context.Context, p Payload) (Result, error) {
	orderID := p.Get("order_id")
	tracking := p.Get("tracking_number")
	h.deps.Logger.Info("order shipped", zap.Any("order_id", orderID), zap.Any("tracking_number", tracking))

	if _, err := h.notify(ctx, fmt.Sprintf("Order Shipped - %v", display(orderID)), map[string]any{
		"type":            "shipping_notification",
		"order_id":        orderID,
		"tracking_number": tracking,
		"carrier":         p.GetOr("carrier", "Unknown"),
	}); err != nil {
		return nil, err
	}

	return Result{"order_id": orderID, "tracking_number": tracking}, nil
}

func (h *handlers) userRegistered(ctx context.Context, p Payload) (Result, error) {
	userID := p.Get("user_id")
	email := p.Get("email")
	h.deps.Logger.Info("new user registered", zap.Any("user_id", userID))

	if email == nil && h.deps.UserResolver != nil {
		if id, ok := p.String("user_id"); ok {
			user, err := h.deps.UserResolver.GetByID(ctx, id)
			switch {
			case err == nil:
				email = user.Email
			case errors.Is(err, repository.ErrNotFound):
				h.deps.Logger.Warn("registered user not found", zap.String("user_id", id))
			default:
				return nil, fmt.Errorf("failed to resolve user %s: %w", id, err)
			}
		}
	}

	sent, err := h.notify(ctx, welcomeSubject, map[string]any{
		"type":    "welcome_email",
		"user_id": userID,
		"email":   email,
	})
	if err != nil {
		return nil, err
	}

	return Result{"user_id": userID, "welcome_sent": sent}, nil
}

func (h *handlers) paymentReceived(_ context.Context, p Payload) (Result, error) {
	orderID := p.Get("order_id")
	h.deps.Logger.Info("payment received", zap.Any("order_id", orderID), zap.Any("amount", p.Get("amount")))

	return Result{"order_id": orderID, "payment_processed": true}, nil
}

// notify publishes message when a notifier is configured and reports whether it did
func (h *handlers) notify(ctx context.Context, subject string, message map[string]any) (bool, error) {
	if h.deps.Notifier == nil {
		return false, nil
	}

	body, err := json.Marshal(message)
	if err != nil {
		return false, fmt.Errorf("failed to encode notification: %w", err)
	}

	if _, err := h.deps.Notifier.Publish(ctx, subject, string(body)); err != nil {
		return false, fmt.Errorf("failed to publish %q: %w", subject, err)
	}
	return true, nil
}

func display(v any) any {
	if v == nil {
		return "unknown"
	}
	return v
}
