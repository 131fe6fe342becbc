package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"compliance-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	defer telemetry.SetLogger(zap.NewNop())()

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("chunk index out of range")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"internal_error"`) {
		t.Fatalf("expected internal_error code, got %s", resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id header")
	}
}
