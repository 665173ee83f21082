package hospital

import (
	"fmt"
	"time"
)

// BirthDateLayout is the ISO-8601 calendar date format used on the wire.
const BirthDateLayout = "2006-01-02"

// Hospital maps to the hospital table.
type Hospital struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Patient maps to the patient table. BirthDate carries no time of day; it is
// always midnight UTC.
type Patient struct {
	ID        int64     `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegistrationID is the composite key of a registration. Two ids are equal
// when both fields are equal, so the type can key a map directly.
type RegistrationID struct {
	PatientID  int64
	HospitalID int64
}

func (id RegistrationID) String() string {
	return fmt.Sprintf("(patient %d, hospital %d)", id.PatientID, id.HospitalID)
}

// Registration maps to the registration table: patient PatientID is
// registered at hospital HospitalID. Rows are never updated in place.
type Registration struct {
	PatientID    int64     `db:"patient_id" json:"patient_id"`
	HospitalID   int64     `db:"hospital_id" json:"hospital_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

func (r *Registration) ID() RegistrationID {
	return RegistrationID{PatientID: r.PatientID, HospitalID: r.HospitalID}
}

// ParseBirthDate parses a YYYY-MM-DD calendar date. Anything else, including
// out-of-range days such as 1990-02-30, is an ErrInvalidArgument.
func ParseBirthDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, invalidArgument("birth date is required")
	}
	t, err := time.Parse(BirthDateLayout, s)
	if err != nil {
		return time.Time{}, invalidArgument("birth date %q is not a valid YYYY-MM-DD date", s)
	}
	return t, nil
}

// FormatBirthDate renders a birth date in the wire format.
func FormatBirthDate(t time.Time) string {
	return t.Format(BirthDateLayout)
}
