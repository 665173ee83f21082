package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PathPrefix is where every service is mounted.
const PathPrefix = "/rpc"

// Service routes POST <prefix>/<name>/<Method> to a handler per method.
// Anything else under the service path is a bad_route.
type Service struct {
	name  string
	group *echo.Group
}

// NewService mounts the named service on g. g is expected to be the group
// for PathPrefix.
func NewService(g *echo.Group, name string) *Service {
	s := &Service{name: name, group: g}
	g.Any("/"+name+"/*", s.badRoute)
	return s
}

func (s *Service) Name() string {
	return s.name
}

// Method registers a procedure.
func (s *Service) Method(method string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.group.POST("/"+s.name+"/"+method, h, m...)
}

func (s *Service) badRoute(c echo.Context) error {
	return Errorf(BadRoute, "no handler for %s %s", c.Request().Method, c.Request().URL.Path)
}

// Path returns the URL path of a procedure.
func Path(service, method string) string {
	return PathPrefix + "/" + service + "/" + method
}

// Bind decodes the JSON request body into v. Unknown fields are rejected
// and an empty body leaves v at its zero value.
func Bind(c echo.Context, v interface{}) error {
	req := c.Request()
	if ct := req.Header.Get(echo.HeaderContentType); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != echo.MIMEApplicationJSON {
			return Errorf(InvalidArgument, "unexpected Content-Type %q", ct)
		}
	}
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			return herr
		}
		return Errorf(InvalidArgument, "malformed request body: %v", err)
	}
	if dec.More() {
		return NewError(InvalidArgument, "malformed request body: trailing data")
	}
	return nil
}

// Respond writes a successful response.
func Respond(c echo.Context, v interface{}) error {
	return c.JSON(http.StatusOK, v)
}
