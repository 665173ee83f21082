package hospital

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hospital/hospital/internal/platform/rpc"
)

func newTestServer() (*echo.Echo, *MemoryStore) {
	svc, store := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = rpc.ErrorHandler(zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e.Group(rpc.PathPrefix))
	return e, store
}

func call(t *testing.T, e *echo.Echo, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, rpc.Path(ServiceName, method), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) rpc.Error {
	t.Helper()
	var env rpc.Error
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHandler_CreateHospital(t *testing.T) {
	e, _ := newTestServer()

	rec := call(t, e, "CreateHospital", `{"name":"Testklinik","address":"Musterweg 1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var msg HospitalMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ID == 0 || msg.Name != "Testklinik" || msg.Address != "Musterweg 1" {
		t.Errorf("unexpected response %+v", msg)
	}
}

func TestHandler_CreatePatient_BirthDateOnWire(t *testing.T) {
	e, _ := newTestServer()

	rec := call(t, e, "CreatePatient", `{"firstName":"Max","lastName":"Mustermann","birthDate":"1990-01-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"birthDate":"1990-01-01"`) {
		t.Errorf("expected birth date round trip, got %s", rec.Body.String())
	}
}

func TestHandler_CreatePatient_InvalidBirthDate(t *testing.T) {
	e, _ := newTestServer()

	rec := call(t, e, "CreatePatient", `{"firstName":"Max","birthDate":"01/01/1990"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != rpc.InvalidArgument {
		t.Errorf("expected invalid_argument, got %s", env.Code)
	}
}

func TestHandler_ModifyHospital_NotFound(t *testing.T) {
	e, _ := newTestServer()

	rec := call(t, e, "ModifyHospital", `{"hospitalId":7,"name":"X","address":"Y"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Code != rpc.NotFound {
		t.Errorf("expected not_found, got %s", env.Code)
	}
	if env.Msg != "Hospital not found with id: 7" {
		t.Errorf("unexpected message %q", env.Msg)
	}
}

func TestHandler_RegisterFlow(t *testing.T) {
	e, store := newTestServer()

	var h HospitalMessage
	_ = json.Unmarshal(call(t, e, "CreateHospital", `{"name":"Testklinik","address":"Musterweg 1"}`).Body.Bytes(), &h)
	var p PatientMessage
	_ = json.Unmarshal(call(t, e, "CreatePatient", `{"firstName":"Max","lastName":"Mustermann","birthDate":"1990-01-01"}`).Body.Bytes(), &p)

	pair := `{"patientId":` + strconv.FormatInt(p.ID, 10) + `,"hospitalId":` + strconv.FormatInt(h.ID, 10) + `}`

	rec := call(t, e, "RegisterPatient", pair)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var reg RegistrationMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reg.PatientID != p.ID || reg.HospitalID != h.ID || reg.RegisteredAt.IsZero() {
		t.Errorf("unexpected registration %+v", reg)
	}

	rec = call(t, e, "RegisterPatient", pair)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != rpc.AlreadyExists {
		t.Errorf("expected already_exists, got %s", env.Code)
	}

	rec = call(t, e, "ListPatientsOfHospital", `{"hospitalId":`+strconv.FormatInt(h.ID, 10)+`}`)
	var list PatientList
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Patients) != 1 || list.Patients[0].ID != p.ID {
		t.Errorf("unexpected patient list %s", rec.Body.String())
	}

	rec = call(t, e, "DeleteHospital", `{"hospitalId":`+strconv.FormatInt(h.ID, 10)+`}`)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("delete: expected 200 {}, got %d %s", rec.Code, rec.Body.String())
	}
	if _, _, r := store.Counts(); r != 0 {
		t.Errorf("expected registrations to cascade, got %d", r)
	}

	rec = call(t, e, "ListHospitalsOfPatient", `{"patientId":`+strconv.FormatInt(p.ID, 10)+`}`)
	if strings.TrimSpace(rec.Body.String()) != `{"hospitals":[]}` {
		t.Errorf("expected empty hospital list, got %s", rec.Body.String())
	}
}

func TestHandler_UnregisterPatient_NotFound(t *testing.T) {
	e, _ := newTestServer()

	rec := call(t, e, "UnregisterPatient", `{"patientId":1,"hospitalId":2}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	env := decodeError(t, rec)
	if env.Code != rpc.NotFound || !strings.HasPrefix(env.Msg, "Registration not found") {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	e, _ := newTestServer()

	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   rpc.Code
	}{
		{"malformed json", "CreateHospital", `{"name":`, http.StatusBadRequest, rpc.InvalidArgument},
		{"unknown field", "CreateHospital", `{"title":"x"}`, http.StatusBadRequest, rpc.InvalidArgument},
		{"id as string", "GetHospital", `{"hospitalId":"seven"}`, http.StatusBadRequest, rpc.InvalidArgument},
		{"unknown method", "DropTables", `{}`, http.StatusNotFound, rpc.BadRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, e, tt.method, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if env := decodeError(t, rec); env.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, env.Code)
			}
		})
	}
}

func TestHandler_GetMethodIsBadRoute(t *testing.T) {
	e, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, rpc.Path(ServiceName, "GetHospital"), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Code != rpc.BadRoute {
		t.Errorf("expected bad_route, got %s", env.Code)
	}
}

func TestHandler_WrongContentTypeIsInvalidArgument(t *testing.T) {
	e, store := newTestServer()

	req := httptest.NewRequest(http.MethodPost, rpc.Path(ServiceName, "CreateHospital"), strings.NewReader(`{"name":"Testklinik","address":"Musterweg 1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decodeError(t, rec); env.Code != rpc.InvalidArgument {
		t.Errorf("expected invalid_argument, got %s", env.Code)
	}
	if h, _, _ := store.Counts(); h != 0 {
		t.Errorf("expected no hospital to be stored, got %d", h)
	}
}

func TestHandler_DirectCall(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patientId":3}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.DeletePatient(c)
	if err == nil {
		t.Fatal("expected error for missing patient")
	}
	rerr := rpc.FromError(err)
	if rerr.Code != rpc.NotFound || rerr.Msg != "Patient not found with id: 3" {
		t.Errorf("unexpected error %+v", rerr)
	}
}
