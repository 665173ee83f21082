package hospital

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input such as a birth date
	// that is not a YYYY-MM-DD calendar date.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyRegistered is returned when a (patient, hospital) pair is
	// registered a second time.
	ErrAlreadyRegistered = errors.New("patient is already registered at hospital")
)

// Entity kinds used in NotFoundError.
const (
	KindHospital     = "Hospital"
	KindPatient      = "Patient"
	KindRegistration = "Registration"
)

// NotFoundError names the entity kind and id that could not be resolved.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func hospitalNotFound(id int64) error {
	return &NotFoundError{Kind: KindHospital, ID: strconv.FormatInt(id, 10)}
}

func patientNotFound(id int64) error {
	return &NotFoundError{Kind: KindPatient, ID: strconv.FormatInt(id, 10)}
}

func registrationNotFound(id RegistrationID) error {
	return &NotFoundError{Kind: KindRegistration, ID: id.String()}
}

func alreadyRegistered(id RegistrationID) error {
	return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
}

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
