package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/dsp-bridge/internal/backend"
	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
	appmetrics "github.com/taoyao-code/dsp-bridge/internal/metrics"
)

func TestHealthzMetrics(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	handler := appmetrics.Handler(reg)
	be := backend.NewMockBackend(0, zap.NewNop())
	srv := New(cfg, "/metrics", handler, be, appmetrics.NewAppMetrics(reg), zap.NewNop())

	// healthz
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}

	// metrics
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	be := backend.NewMockBackend(0, zap.NewNop())
	srv := New(cfg, "/metrics", nil, be, nil, zap.NewNop())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("/metrics disabled code=%d", rr.Code)
	}
}
