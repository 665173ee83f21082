package hospital

import "time"

// Request and response messages of the hospital RPC service. Field names
// follow the protobuf JSON mapping.

type CreateHospitalRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ModifyHospitalRequest struct {
	HospitalID int64  `json:"hospitalId"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

type DeleteHospitalRequest struct {
	HospitalID int64 `json:"hospitalId"`
}

type GetHospitalRequest struct {
	HospitalID int64 `json:"hospitalId"`
}

type CreatePatientRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
}

type ModifyPatientRequest struct {
	PatientID int64  `json:"patientId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
}

type DeletePatientRequest struct {
	PatientID int64 `json:"patientId"`
}

type GetPatientRequest struct {
	PatientID int64 `json:"patientId"`
}

// RegisterPatientRequest is used by both RegisterPatient and
// UnregisterPatient.
type RegisterPatientRequest struct {
	PatientID  int64 `json:"patientId"`
	HospitalID int64 `json:"hospitalId"`
}

type ListPatientsRequest struct {
	HospitalID int64 `json:"hospitalId"`
}

type ListHospitalsRequest struct {
	PatientID int64 `json:"patientId"`
}

type HospitalMessage struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type PatientMessage struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
}

type RegistrationMessage struct {
	PatientID    int64     `json:"patientId"`
	HospitalID   int64     `json:"hospitalId"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type PatientList struct {
	Patients []PatientMessage `json:"patients"`
}

type HospitalList struct {
	Hospitals []HospitalMessage `json:"hospitals"`
}

// Empty acknowledges a successful delete or unregister.
type Empty struct{}

func NewHospitalMessage(h *Hospital) HospitalMessage {
	return HospitalMessage{ID: h.ID, Name: h.Name, Address: h.Address}
}

func NewPatientMessage(p *Patient) PatientMessage {
	return PatientMessage{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthDate: FormatBirthDate(p.BirthDate),
	}
}

func NewRegistrationMessage(r *Registration) RegistrationMessage {
	return RegistrationMessage{
		PatientID:    r.PatientID,
		HospitalID:   r.HospitalID,
		RegisteredAt: r.RegisteredAt,
	}
}

// NewPatientList never returns a nil slice so the list encodes as [].
func NewPatientList(patients []*Patient) PatientList {
	out := PatientList{Patients: make([]PatientMessage, 0, len(patients))}
	for _, p := range patients {
		out.Patients = append(out.Patients, NewPatientMessage(p))
	}
	return out
}

// NewHospitalList never returns a nil slice so the list encodes as [].
func NewHospitalList(hospitals []*Hospital) HospitalList {
	out := HospitalList{Hospitals: make([]HospitalMessage, 0, len(hospitals))}
	for _, h := range hospitals {
		out.Hospitals = append(out.Hospitals, NewHospitalMessage(h))
	}
	return out
}
