package errors

import "fmt"

// BusOpenError is returned when a bus interface cannot be opened or bound.
// It is fatal at startup and never retried.
type BusOpenError struct {
	Name string
	Err  error
}

func (err *BusOpenError) Error() string {
	return fmt.Sprintf("unable to open bus %s: %v", err.Name, err.Err)
}

func (err *BusOpenError) Unwrap() error {
	return err.Err
}

type FamilyNameError struct {
	Name string
}

func (err FamilyNameError) Error() string {
	return fmt.Sprintf("no such motor family %q", err.Name)
}

type MotorNameError struct {
	Name string
}

func (err MotorNameError) Error() string {
	if len(err.Name) == 0 {
		err.Name = "UNKNOWN"
	}

	return fmt.Sprintf("no such motor %s", err.Name)
}

type ConfigVersionError struct {
	Version    string
	Constraint string
}

func (err ConfigVersionError) Error() string {
	return fmt.Sprintf("unable to use config version %q - require %s", err.Version, err.Constraint)
}
