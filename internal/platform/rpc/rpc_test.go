package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{NotFound, http.StatusNotFound},
		{BadRoute, http.StatusNotFound},
		{InvalidArgument, http.StatusBadRequest},
		{AlreadyExists, http.StatusConflict},
		{ResourceExhausted, http.StatusTooManyRequests},
		{Canceled, http.StatusRequestTimeout},
		{Unavailable, http.StatusServiceUnavailable},
		{Internal, http.StatusInternalServerError},
		{Code("bogus"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.code, tt.want, got)
		}
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		msg  string
	}{
		{"rpc error", NewError(NotFound, "gone"), NotFound, "gone"},
		{"wrapped rpc error", fmt.Errorf("ctx: %w", NewError(AlreadyExists, "dup")), AlreadyExists, "dup"},
		{"echo 404", echo.ErrNotFound, BadRoute, "Not Found"},
		{"echo 429", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), ResourceExhausted, "rate limit exceeded"},
		{"echo 413", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large"), InvalidArgument, "request body too large"},
		{"canceled", context.Canceled, Canceled, "request canceled"},
		{"plain error", errors.New("connection reset by peer"), Internal, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got.Code != tt.code || got.Msg != tt.msg {
				t.Errorf("expected %s %q, got %s %q", tt.code, tt.msg, got.Code, got.Msg)
			}
		})
	}
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.POST("/boom", func(c echo.Context) error {
		return errors.New("pq: password authentication failed for user admin")
	})

	req := httptest.NewRequest(http.MethodPost, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("internal error text leaked: %s", rec.Body.String())
	}
	var env Error
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != Internal {
		t.Errorf("expected internal, got %s", env.Code)
	}
}

type echoReq struct {
	Value int64 `json:"value"`
}

func newEchoService() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	s := NewService(e.Group(PathPrefix), "test.v1.Echo")
	s.Method("Echo", func(c echo.Context) error {
		var req echoReq
		if err := Bind(c, &req); err != nil {
			return err
		}
		return Respond(c, req)
	})
	return e
}

func TestService_Routes(t *testing.T) {
	e := newEchoService()

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"ok", Path("test.v1.Echo", "Echo"), echo.MIMEApplicationJSON, `{"value":7}`, http.StatusOK, `{"value":7}`},
		{"charset", Path("test.v1.Echo", "Echo"), "application/json; charset=utf-8", `{"value":8}`, http.StatusOK, `{"value":8}`},
		{"empty body", Path("test.v1.Echo", "Echo"), echo.MIMEApplicationJSON, ``, http.StatusOK, `{"value":0}`},
		{"unknown method", Path("test.v1.Echo", "Nope"), echo.MIMEApplicationJSON, `{}`, http.StatusNotFound, `"code":"bad_route"`},
		{"wrong content type", Path("test.v1.Echo", "Echo"), "text/plain", `{}`, http.StatusBadRequest, `"code":"invalid_argument"`},
		{"trailing data", Path("test.v1.Echo", "Echo"), echo.MIMEApplicationJSON, `{"value":1}{"value":2}`, http.StatusBadRequest, `"code":"invalid_argument"`},
		{"unknown field", Path("test.v1.Echo", "Echo"), echo.MIMEApplicationJSON, `{"other":1}`, http.StatusBadRequest, `"code":"invalid_argument"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, tt.contentType)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected body to contain %s, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestPath(t *testing.T) {
	if got := Path("a.v1.S", "M"); got != "/rpc/a.v1.S/M" {
		t.Errorf("unexpected path %s", got)
	}
}
