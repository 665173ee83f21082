package hospital

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/hospital/hospital/internal/platform/rpc"
)

// ServiceName is the fully qualified RPC service name.
const ServiceName = "hospital.v1.HospitalService"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts every procedure under the rpc group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	s := rpc.NewService(g, ServiceName)
	s.Method("CreateHospital", h.CreateHospital)
	s.Method("GetHospital", h.GetHospital)
	s.Method("ModifyHospital", h.ModifyHospital)
	s.Method("DeleteHospital", h.DeleteHospital)
	s.Method("CreatePatient", h.CreatePatient)
	s.Method("GetPatient", h.GetPatient)
	s.Method("ModifyPatient", h.ModifyPatient)
	s.Method("DeletePatient", h.DeletePatient)
	s.Method("RegisterPatient", h.RegisterPatient)
	s.Method("UnregisterPatient", h.UnregisterPatient)
	s.Method("ListPatientsOfHospital", h.ListPatientsOfHospital)
	s.Method("ListHospitalsOfPatient", h.ListHospitalsOfPatient)
}

// toRPCError translates domain errors into envelope categories. Anything
// unrecognised is returned as is and reported as internal.
func toRPCError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return rpc.NewError(rpc.NotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return rpc.NewError(rpc.InvalidArgument, err.Error())
	case errors.Is(err, ErrAlreadyRegistered):
		return rpc.NewError(rpc.AlreadyExists, err.Error())
	}
	return err
}

// -- Hospitals --

func (h *Handler) CreateHospital(c echo.Context) error {
	var req CreateHospitalRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	hosp, err := h.svc.CreateHospital(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewHospitalMessage(hosp))
}

func (h *Handler) GetHospital(c echo.Context) error {
	var req GetHospitalRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	hosp, err := h.svc.GetHospital(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewHospitalMessage(hosp))
}

func (h *Handler) ModifyHospital(c echo.Context) error {
	var req ModifyHospitalRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	hosp, err := h.svc.ModifyHospital(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewHospitalMessage(hosp))
}

func (h *Handler) DeleteHospital(c echo.Context) error {
	var req DeleteHospitalRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.DeleteHospital(c.Request().Context(), req); err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, Empty{})
}

// -- Patients --

func (h *Handler) CreatePatient(c echo.Context) error {
	var req CreatePatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewPatientMessage(p))
}

func (h *Handler) GetPatient(c echo.Context) error {
	var req GetPatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewPatientMessage(p))
}

func (h *Handler) ModifyPatient(c echo.Context) error {
	var req ModifyPatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.svc.ModifyPatient(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewPatientMessage(p))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	var req DeletePatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), req); err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, Empty{})
}

// -- Registrations --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req RegisterPatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	reg, err := h.svc.RegisterPatient(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewRegistrationMessage(reg))
}

func (h *Handler) UnregisterPatient(c echo.Context) error {
	var req RegisterPatientRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.UnregisterPatient(c.Request().Context(), req); err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, Empty{})
}

func (h *Handler) ListPatientsOfHospital(c echo.Context) error {
	var req ListPatientsRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	patients, err := h.svc.ListPatientsOfHospital(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewPatientList(patients))
}

func (h *Handler) ListHospitalsOfPatient(c echo.Context) error {
	var req ListHospitalsRequest
	if err := rpc.Bind(c, &req); err != nil {
		return err
	}
	hospitals, err := h.svc.ListHospitalsOfPatient(c.Request().Context(), req)
	if err != nil {
		return toRPCError(err)
	}
	return rpc.Respond(c, NewHospitalList(hospitals))
}
