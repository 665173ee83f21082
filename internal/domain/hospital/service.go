package hospital

import (
	"context"

	"github.com/rs/zerolog"
)

// Service is the façade over the hospital registry. Each method runs in
// exactly one transaction, so the existence checks it performs and the
// mutation they guard are never interleaved with a concurrent delete.
type Service struct {
	tx            Transactor
	hospitals     HospitalRepository
	patients      PatientRepository
	registrations RegistrationRepository
	logger        zerolog.Logger
}

func NewService(tx Transactor, hospitals HospitalRepository, patients PatientRepository, registrations RegistrationRepository, logger zerolog.Logger) *Service {
	return &Service{
		tx:            tx,
		hospitals:     hospitals,
		patients:      patients,
		registrations: registrations,
		logger:        logger.With().Str("component", "hospital-service").Logger(),
	}
}

// -- Hospitals --

func (s *Service) CreateHospital(ctx context.Context, req CreateHospitalRequest) (*Hospital, error) {
	h := &Hospital{Name: req.Name, Address: req.Address}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.hospitals.Create(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("hospital_id", h.ID).Msg("hospital created")
	return h, nil
}

func (s *Service) GetHospital(ctx context.Context, req GetHospitalRequest) (*Hospital, error) {
	var h *Hospital
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		h, err = s.hospitals.GetByID(ctx, req.HospitalID)
		return err
	})
	return h, err
}

func (s *Service) ModifyHospital(ctx context.Context, req ModifyHospitalRequest) (*Hospital, error) {
	h := &Hospital{ID: req.HospitalID, Name: req.Name, Address: req.Address}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.hospitals.Update(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("hospital_id", h.ID).Msg("hospital modified")
	return h, nil
}

func (s *Service) DeleteHospital(ctx context.Context, req DeleteHospitalRequest) error {
	var cascaded int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		cascaded, err = s.hospitals.Delete(ctx, req.HospitalID)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Int64("hospital_id", req.HospitalID).
		Int64("registrations_removed", cascaded).
		Msg("hospital deleted")
	return nil
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	birthDate, err := ParseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}
	p := &Patient{FirstName: req.FirstName, LastName: req.LastName, BirthDate: birthDate}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", p.ID).Msg("patient created")
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, req GetPatientRequest) (*Patient, error) {
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.patients.GetByID(ctx, req.PatientID)
		return err
	})
	return p, err
}

// ModifyPatient validates the birth date before touching the store, so a
// malformed date is reported even when the patient does not exist.
func (s *Service) ModifyPatient(ctx context.Context, req ModifyPatientRequest) (*Patient, error) {
	birthDate, err := ParseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}
	p := &Patient{ID: req.PatientID, FirstName: req.FirstName, LastName: req.LastName, BirthDate: birthDate}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.patients.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("patient_id", p.ID).Msg("patient modified")
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, req DeletePatientRequest) error {
	var cascaded int64
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		cascaded, err = s.patients.Delete(ctx, req.PatientID)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Int64("patient_id", req.PatientID).
		Int64("registrations_removed", cascaded).
		Msg("patient deleted")
	return nil
}

// -- Registrations --

// RegisterPatient checks the patient before the hospital, so when both are
// missing the error names the patient. A pair that is already registered
// fails with ErrAlreadyRegistered.
func (s *Service) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*Registration, error) {
	reg := &Registration{PatientID: req.PatientID, HospitalID: req.HospitalID}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.patients.Exists(ctx, req.PatientID)
		if err != nil {
			return err
		}
		if !ok {
			return patientNotFound(req.PatientID)
		}
		ok, err = s.hospitals.Exists(ctx, req.HospitalID)
		if err != nil {
			return err
		}
		if !ok {
			return hospitalNotFound(req.HospitalID)
		}
		return s.registrations.Create(ctx, reg)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("patient_id", reg.PatientID).
		Int64("hospital_id", reg.HospitalID).
		Msg("patient registered")
	return reg, nil
}

func (s *Service) UnregisterPatient(ctx context.Context, req RegisterPatientRequest) error {
	id := RegistrationID{PatientID: req.PatientID, HospitalID: req.HospitalID}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.registrations.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().
		Int64("patient_id", id.PatientID).
		Int64("hospital_id", id.HospitalID).
		Msg("patient unregistered")
	return nil
}

// ListPatientsOfHospital returns the patients registered at the hospital in
// registration order. An unknown hospital yields an empty list.
func (s *Service) ListPatientsOfHospital(ctx context.Context, req ListPatientsRequest) ([]*Patient, error) {
	out := []*Patient{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		regs, err := s.registrations.ListByHospital(ctx, req.HospitalID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(regs))
		for _, r := range regs {
			ids = append(ids, r.PatientID)
		}
		patients, err := s.patients.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]*Patient, len(patients))
		for _, p := range patients {
			byID[p.ID] = p
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListHospitalsOfPatient returns the hospitals the patient is registered at
// in registration order. An unknown patient yields an empty list.
func (s *Service) ListHospitalsOfPatient(ctx context.Context, req ListHospitalsRequest) ([]*Hospital, error) {
	out := []*Hospital{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		regs, err := s.registrations.ListByPatient(ctx, req.PatientID)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(regs))
		for _, r := range regs {
			ids = append(ids, r.HospitalID)
		}
		hospitals, err := s.hospitals.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[int64]*Hospital, len(hospitals))
		for _, h := range hospitals {
			byID[h.ID] = h
		}
		for _, id := range ids {
			if h, ok := byID[id]; ok {
				out = append(out, h)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
