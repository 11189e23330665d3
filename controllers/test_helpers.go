package controllers

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/PushRelay/ratelimit"
	"github.com/PushRelay/services"
	"github.com/gin-gonic/gin"
)

const TestAppIDPrefix = "io.robbie.HomeAssistant"

// MockGateway stands in for APNs/FCM and records what it was asked to send.
type MockGateway struct {
	mu   sync.Mutex
	Sent []services.GatewayNotification
	Err  error
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Send(ctx context.Context, n services.GatewayNotification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sent = append(g.Sent, n)
	return g.Err
}

func (g *MockGateway) Calls() []services.GatewayNotification {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]services.GatewayNotification(nil), g.Sent...)
}

// SetupTestRelay installs a dispatcher backed by store and gateway as the
// global relay service. A nil store means a fresh in-memory store.
func SetupTestRelay(t *testing.T, gateway services.PushGateway, store ratelimit.Store) (*services.RelayDispatcher, func()) {
	if store == nil {
		store = ratelimit.NewMemoryStore()
	}
	metrics := services.NewMetrics()
	limiter, err := ratelimit.NewLimiter(store, ratelimit.WithRecorder(metrics))
	if err != nil {
		t.Fatalf("Failed to create limiter: %v", err)
	}

	dispatcher := services.NewRelayDispatcher(gateway, limiter, TestAppIDPrefix, metrics)

	original := services.GetRelayDispatcher()
	services.InitRelayService(dispatcher)

	cleanup := func() {
		services.InitRelayService(original)
	}

	return dispatcher, cleanup
}

// SetupTestContext creates a test Gin context with a response recorder
func SetupTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

// SetJSONBody attaches a POST request with body to the test context.
func SetJSONBody(c *gin.Context, path string, body []byte) {
	c.Request = httptest.NewRequest("POST", path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
}
