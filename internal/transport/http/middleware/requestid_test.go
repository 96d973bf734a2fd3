package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/prompt-library/internal/requestid"
	"github.com/ErlanBelekov/prompt-library/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

func TestRequestID_ReplacesMalformedHeader(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = requestid.FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\twith tab")
	r.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	if got == "bad id\twith tab" || !requestid.Valid(got) {
		t.Fatalf("expected a fresh id, got %q", got)
	}
	if seen != got {
		t.Errorf("context id %q != header id %q", seen, got)
	}
}
