package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/prperemyshlev/platform-services/internal/dto"
	"github.com/prperemyshlev/platform-services/internal/mocks"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"github.com/prperemyshlev/platform-services/internal/service"
	"github.com/prperemyshlev/platform-services/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func init() {
	gin.SetMode(gin.TestMode)
	UseJSONFieldNames()
}

func doJSON(router http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type HandlerSuite struct {
	suite.Suite
	router *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	repos := repository.NewMemoryRepositories()
	jwt := utils.NewJWTManager(testSecret, time.Hour, 7*24*time.Hour)
	authService := service.NewAuthService(repos, jwt, bcrypt.MinCost, zap.NewNop())
	userService := service.NewUserService(repos, zap.NewNop())

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(userService)

	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggerMiddleware(zap.NewNop()))
	auth := router.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/verify", authHandler.Verify)

	users := router.Group("/users", AuthMiddleware(authService))
	users.GET("", userHandler.List)
	users.GET("/me", userHandler.Me)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	s.router = router
}

func (s *HandlerSuite) register(email string) dto.AuthResponse {
	w := doJSON(s.router, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: email, Password: "SecurePass123"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var resp dto.AuthResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func (s *HandlerSuite) TestRegisterLoginVerify() {
	registered := s.register("ada@example.com")
	s.Equal("Bearer", registered.TokenType)
	s.Equal(3600, registered.ExpiresIn)
	s.Require().NotNil(registered.User)

	w := doJSON(s.router, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "ada@example.com", Password: "SecurePass123"})
	s.Require().Equal(http.StatusOK, w.Code)

	var login dto.AuthResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(s.router, http.MethodGet, "/auth/verify", nil, bearer(login.AccessToken)...)
	s.Require().Equal(http.StatusOK, w.Code)

	var verify dto.VerifyResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &verify))
	s.True(verify.Valid)
	s.Equal(registered.User.ID, verify.User.ID)
}

func (s *HandlerSuite) TestRegisterErrors() {
	s.register("dup@example.com")

	w := doJSON(s.router, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: "dup@example.com", Password: "SecurePass123"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("conflict", decodeError(s.T(), w).Error)

	w = doJSON(s.router, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: "weak@example.com", Password: "weak"})
	s.Equal(http.StatusBadRequest, w.Code)
	resp := decodeError(s.T(), w)
	s.Equal("validation_error", resp.Error)
	s.Contains(resp.Details, "password")

	w = doJSON(s.router, http.MethodPost, "/auth/register", `{"email":"x@example.com"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(map[string]any{"password": []any{"Missing data for required field."}}, decodeError(s.T(), w).Details)

	w = doJSON(s.router, http.MethodPost, "/auth/register", `{not json`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid request body", decodeError(s.T(), w).Message)
}

func (s *HandlerSuite) TestLoginErrors() {
	s.register("bob@example.com")

	w := doJSON(s.router, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "bob@example.com", Password: "WrongPass123"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid credentials", decodeError(s.T(), w).Message)

	w = doJSON(s.router, http.MethodPost, "/auth/login", dto.LoginRequest{Email: "nobody@example.com", Password: "SecurePass123"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid credentials", decodeError(s.T(), w).Message)
}

func (s *HandlerSuite) TestRefreshRotatesAndLogoutRevokes() {
	registered := s.register("carol@example.com")

	w := doJSON(s.router, http.MethodPost, "/auth/refresh", dto.RefreshRequest{RefreshToken: registered.RefreshToken})
	s.Require().Equal(http.StatusOK, w.Code)

	var refreshed map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &refreshed))
	s.NotContains(refreshed, "user")
	s.NotEqual(registered.RefreshToken, refreshed["refresh_token"])

	w = doJSON(s.router, http.MethodPost, "/auth/refresh", dto.RefreshRequest{RefreshToken: registered.RefreshToken})
	s.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(s.router, http.MethodPost, "/auth/logout", dto.LogoutRequest{RefreshToken: refreshed["refresh_token"].(string)})
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"Successfully logged out"}`, w.Body.String())

	w = doJSON(s.router, http.MethodPost, "/auth/refresh", dto.RefreshRequest{RefreshToken: refreshed["refresh_token"].(string)})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid refresh token", decodeError(s.T(), w).Message)
}

func (s *HandlerSuite) TestLogoutAlwaysSucceedsWithBody() {
	w := doJSON(s.router, http.MethodPost, "/auth/logout", dto.LogoutRequest{RefreshToken: "garbage"})
	s.Equal(http.StatusOK, w.Code)

	w = doJSON(s.router, http.MethodPost, "/auth/logout", `{}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestVerifyRequiresBearer() {
	w := doJSON(s.router, http.MethodGet, "/auth/verify", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("unauthorized", decodeError(s.T(), w).Error)

	w = doJSON(s.router, http.MethodGet, "/auth/verify", nil, "Authorization", "Token abc")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(s.router, http.MethodGet, "/auth/verify", nil, bearer("not-a-jwt")...)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("invalid token", decodeError(s.T(), w).Message)

	registered := s.register("dave@example.com")
	w = doJSON(s.router, http.MethodGet, "/auth/verify", nil, bearer(registered.RefreshToken)...)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerSuite) TestUserRoutes() {
	alice := s.register("alice@example.com")
	bob := s.register("bob2@example.com")

	w := doJSON(s.router, http.MethodGet, "/users/me", nil, bearer(alice.AccessToken)...)
	s.Require().Equal(http.StatusOK, w.Code)
	var me dto.UserInfo
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &me))
	s.Equal(alice.User.ID, me.ID)

	w = doJSON(s.router, http.MethodGet, "/users?per_page=1", nil, bearer(alice.AccessToken)...)
	s.Require().Equal(http.StatusOK, w.Code)
	var list dto.UserListResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Len(list.Users, 1)
	s.Equal(2, list.Pagination.Total)
	s.True(list.Pagination.HasNext)

	w = doJSON(s.router, http.MethodGet, "/users/"+bob.User.ID, nil, bearer(alice.AccessToken)...)
	s.Equal(http.StatusOK, w.Code)

	w = doJSON(s.router, http.MethodGet, "/users/missing", nil, bearer(alice.AccessToken)...)
	s.Equal(http.StatusNotFound, w.Code)

	name := "Alice"
	w = doJSON(s.router, http.MethodPut, "/users/"+alice.User.ID, dto.UpdateUserRequest{FirstName: &name}, bearer(alice.AccessToken)...)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &me))
	s.Equal("Alice", *me.FirstName)

	long := strings.Repeat("x", 101)
	w = doJSON(s.router, http.MethodPut, "/users/"+alice.User.ID, dto.UpdateUserRequest{LastName: &long}, bearer(alice.AccessToken)...)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(decodeError(s.T(), w).Details, "last_name")

	w = doJSON(s.router, http.MethodPut, "/users/"+bob.User.ID, dto.UpdateUserRequest{FirstName: &name}, bearer(alice.AccessToken)...)
	s.Equal(http.StatusForbidden, w.Code)

	w = doJSON(s.router, http.MethodDelete, "/users/"+bob.User.ID, nil, bearer(alice.AccessToken)...)
	s.Equal(http.StatusForbidden, w.Code)

	w = doJSON(s.router, http.MethodDelete, "/users/"+alice.User.ID, nil, bearer(alice.AccessToken)...)
	s.Equal(http.StatusNoContent, w.Code)

	w = doJSON(s.router, http.MethodGet, "/users/me", nil, bearer(alice.AccessToken)...)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = doJSON(s.router, http.MethodGet, "/users", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func notificationRouter(t *testing.T) (*gin.Engine, *mocks.MockPublisher, *mocks.MockSMSSender, *mocks.MockQueue) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	sms := mocks.NewMockSMSSender(ctrl)
	queue := mocks.NewMockQueue(ctrl)

	h := NewNotificationHandler(service.NewNotificationService(publisher, sms, queue, zap.NewNop(), nil))

	router := gin.New()
	router.POST("/notifications/email", h.SendEmail)
	router.POST("/notifications/sms", h.SendSMS)
	router.POST("/notifications/push", h.SendPush)
	router.POST("/notifications/batch", h.SendBatch)
	return router, publisher, sms, queue
}

func TestNotificationEmail(t *testing.T) {
	router, publisher, _, _ := notificationRouter(t)
	publisher.EXPECT().Publish(gomock.Any(), "Email: Hi", gomock.Any()).Return("m-1", nil)

	w := doJSON(router, http.MethodPost, "/notifications/email", map[string]any{
		"to": "a@example.com", "subject": "Hi", "body": "Hello",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"message":"Email notification queued","message_id":"m-1"}`, w.Body.String())

	w = doJSON(router, http.MethodPost, "/notifications/email", map[string]any{
		"to": "not-an-email", "subject": "Hi", "body": "Hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]any{"to": []any{"Not a valid email address."}}, decodeError(t, w).Details)
}

func TestNotificationSMSValidation(t *testing.T) {
	router, _, sms, _ := notificationRouter(t)
	sms.EXPECT().SendSMS(gomock.Any(), "+14155550100", "code").Return("s-1", nil)

	w := doJSON(router, http.MethodPost, "/notifications/sms", map[string]any{"phone": "+14155550100", "message": "code"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = doJSON(router, http.MethodPost, "/notifications/sms", map[string]any{"phone": "555-0100", "message": "code"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/notifications/sms", map[string]any{"phone": "+14155550100", "message": strings.Repeat("x", 161)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationSinkFailure(t *testing.T) {
	router, _, _, queue := notificationRouter(t)
	queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("queue down"))

	w := doJSON(router, http.MethodPost, "/notifications/push", map[string]any{"user_id": "u1", "title": "t", "body": "b"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "service_error", resp.Error)
	assert.NotContains(t, resp.Message, "queue down")
}

func TestNotificationBatch(t *testing.T) {
	router, _, _, queue := notificationRouter(t)
	gomock.InOrder(
		queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("q-1", nil),
		queue.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("throttled")),
	)

	w := doJSON(router, http.MethodPost, "/notifications/batch", map[string]any{
		"notifications": []map[string]any{{"type": "push"}, {"type": "push"}},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.BatchNotificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1/2 notifications queued", resp.Message)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "queued", resp.Results[0].Status)
	assert.Equal(t, "failed", resp.Results[1].Status)

	tooMany := make([]map[string]any, dto.MaxBatchNotifications+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"type": "push"}
	}
	w = doJSON(router, http.MethodPost, "/notifications/batch", map[string]any{"notifications": tooMany})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubLimiter struct {
	decision *service.RateLimitDecision
	err      error
	keys     []string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (*service.RateLimitDecision, error) {
	l.keys = append(l.keys, key)
	return l.decision, l.err
}

func limitedRouter(limiter service.Limiter) *gin.Engine {
	router := gin.New()
	router.POST("/auth/login", RateLimitMiddleware(limiter, 5, time.Minute, IPBasedKey, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	allowed := &stubLimiter{decision: &service.RateLimitDecision{Allowed: true, Limit: 5, Remaining: 4}}
	w := doJSON(limitedRouter(allowed), http.MethodPost, "/auth/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"/auth/login:192.0.2.1"}, allowed.keys)

	denied := &stubLimiter{decision: &service.RateLimitDecision{Limit: 5, RetryAfter: 1500 * time.Millisecond}}
	w = doJSON(limitedRouter(denied), http.MethodPost, "/auth/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, w).Error)

	broken := &stubLimiter{err: errors.New("redis down")}
	w = doJSON(limitedRouter(broken), http.MethodPost, "/auth/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(limitedRouter(nil), http.MethodPost, "/auth/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}, []string{"GET", "POST"}, []string{"Content-Type"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDHeader)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}
