package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/hospital/hospital/internal/platform/rpc"
)

func TestRPCMetrics_CountsByRouteAndCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewRPCMetrics(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	e.Use(m.Middleware())
	e.POST("/rpc/s/Ok", func(c echo.Context) error { return c.JSON(http.StatusOK, struct{}{}) })
	e.POST("/rpc/s/Missing", func(c echo.Context) error { return rpc.NewError(rpc.NotFound, "gone") })

	for _, path := range []string{"/rpc/s/Ok", "/rpc/s/Ok", "/rpc/s/Missing"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/rpc/s/Ok", "ok", "200")); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("/rpc/s/Missing", "not_found", "404")); got != 1 {
		t.Errorf("expected 1 not_found request, got %v", got)
	}

	expected := `
# HELP rpc_requests_total RPC requests by route and status.
# TYPE rpc_requests_total counter
rpc_requests_total{code="not_found",route="/rpc/s/Missing",status="404"} 1
rpc_requests_total{code="ok",route="/rpc/s/Ok",status="200"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "rpc_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestNewRPCMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRPCMetrics(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewRPCMetrics(reg); err == nil {
		t.Error("expected error registering the same collectors twice")
	}
}
