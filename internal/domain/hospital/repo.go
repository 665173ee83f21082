package hospital

import "context"

// Transactor runs fn inside one atomic unit of work. Every repository call
// made with the context passed to fn joins that unit.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// HospitalRepository defines the persistence interface for hospitals.
type HospitalRepository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id int64) (*Hospital, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	// Delete removes the hospital and every registration referencing it in
	// the same transaction and reports how many registrations went with it.
	Delete(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// PatientRepository defines the persistence interface for patients.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Delete removes the patient and every registration referencing it in
	// the same transaction and reports how many registrations went with it.
	Delete(ctx context.Context, id int64) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// RegistrationRepository defines the persistence interface for
// registrations and the two lookups by foreign key.
type RegistrationRepository interface {
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id RegistrationID) (*Registration, error)
	Delete(ctx context.Context, id RegistrationID) error
	Exists(ctx context.Context, id RegistrationID) (bool, error)
	// ListByHospital and ListByPatient return registrations in the order
	// they were created, and an empty slice for unknown ids.
	ListByHospital(ctx context.Context, hospitalID int64) ([]*Registration, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Registration, error)
}
