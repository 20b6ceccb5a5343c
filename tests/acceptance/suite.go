package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/platform-services/internal/app"
	"github.com/prperemyshlev/platform-services/internal/config"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// Suite runs the auth and user services over one shared in-memory store
type Suite struct {
	suite.Suite
	AuthServer *httptest.Server
	UserServer *httptest.Server
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"},
		JWT: config.JWTConfig{
			Secret:             "acceptance-secret-key-that-is-at-least-32-characters",
			AccessTokenExpiry:  config.Duration{Duration: 15 * time.Minute},
			RefreshTokenExpiry: config.Duration{Duration: 24 * time.Hour},
		},
		Security: config.SecurityConfig{
			BCryptCost:        4,
			RateLimitRequests: 100,
			RateLimitWindow:   config.Duration{Duration: time.Minute},
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Env: "test",
	}
}

func (s *Suite) SetupTest() {
	gin.SetMode(gin.TestMode)

	infra, err := app.NewInMemoryInfrastructure(zap.NewNop(), "acceptance")
	s.Require().NoError(err)

	cfg := testConfig()
	s.AuthServer = httptest.NewServer(app.NewAuthApp(infra, cfg).Router())
	s.UserServer = httptest.NewServer(app.NewUserApp(infra, cfg).Router())
}

func (s *Suite) TearDownTest() {
	s.AuthServer.Close()
	s.UserServer.Close()
}

// do sends a JSON request and decodes the JSON response into out when out is non-nil
func (s *Suite) do(method, url, token string, body, out any) int {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}
