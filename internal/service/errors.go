package service

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail  = errors.New("duplicate email")
	ErrPatientNotFound = errors.New("patient not found")
)

type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return "a patient with this email already exists: " + e.Email
}

func (e *DuplicateEmailError) Is(target error) bool { return target == ErrDuplicateEmail }

type PatientNotFoundError struct {
	ID string
}

func (e *PatientNotFoundError) Error() string {
	return "patient not found with id: " + e.ID
}

func (e *PatientNotFoundError) Is(target error) bool { return target == ErrPatientNotFound }

// InvalidDateError is returned when dateOfBirth is not YYYY-MM-DD.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", e.Value)
}

func (e *InvalidDateError) Unwrap() error { return e.Err }
