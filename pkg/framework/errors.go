package framework

import (
	"fmt"
	"strings"
)

// DeviceError is the failure of one named device.
type DeviceError struct {
	Device string
	Err    error
}

// Error implements error.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Device, e.Err)
}

// Unwrap returns the cause.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error. A single error is reported as is.
func (e *AggregatedError) Error() string {
	switch len(e.Errors) {
	case 0:
		return ""
	case 1:
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Devices returns the names of failed devices.
func (e *AggregatedError) Devices() []string {
	var names []string
	for _, err := range e.Errors {
		if de, ok := err.(*DeviceError); ok {
			names = append(names, de.Device)
		}
	}
	return names
}
