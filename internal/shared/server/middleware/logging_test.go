package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"compliance-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	defer telemetry.SetLogger(zap.New(core))()

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/test", func(c *gin.Context) {
		c.Set("uploadId", "upload-1")
		c.Set("deduplicationHit", true)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request.complete entry, got %d", len(entries))
	}
	payload := entries[0].ContextMap()
	for _, key := range []string{"request_id", "upload_id", "duration_ms", "status", "method", "path"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["upload_id"] != "upload-1" {
		t.Fatalf("unexpected upload_id: %v", payload["upload_id"])
	}
	if payload["deduplication_hit"] != true {
		t.Fatalf("unexpected deduplication_hit: %v", payload["deduplication_hit"])
	}
	if resp.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("expected request id echoed in header")
	}
}

func TestLoggingSkipsPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	defer telemetry.SetLogger(zap.New(core))()

	router := gin.New()
	router.Use(Logging())
	router.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/x", nil))

	if n := logs.FilterMessage("request.complete").Len(); n != 0 {
		t.Fatalf("expected no log for OPTIONS, got %d", n)
	}
}
