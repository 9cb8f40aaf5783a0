package errors

import "fmt"

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	File   string
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s at line %d: %v (record: %v)", e.File, e.Line, e.Err, e.Record)
	}
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError ties a core validation failure to the record that caused it.
type ValidationError struct {
	Subject string // "allocation", "employee", "task", ...
	ID      string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Subject, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Core error kinds. All are synchronous and deterministic for a given input.
var (
	ErrInvalidAllocation     = fmt.Errorf("invalid allocation")
	ErrInvalidDateRange      = fmt.Errorf("%w: end date before start date", ErrInvalidAllocation)
	ErrInvalidCapacity       = fmt.Errorf("invalid capacity")
	ErrInvalidForecastWindow = fmt.Errorf("invalid forecast window")
	ErrCyclicDependency      = fmt.Errorf("cyclic dependency")
	ErrUnknownDependency     = fmt.Errorf("unknown dependency")
	ErrMissingHourlyRate     = fmt.Errorf("missing hourly rate")
	ErrInvalidDemand         = fmt.Errorf("invalid demand record")
	ErrInvalidTask           = fmt.Errorf("invalid task")
	ErrInvalidConfig         = fmt.Errorf("invalid configuration")
	ErrUnknownEmployee       = fmt.Errorf("unknown employee")
)

// Input boundary errors.
var (
	ErrInvalidFieldCount = fmt.Errorf("invalid field count")
	ErrInvalidNumber     = fmt.Errorf("invalid number")
	ErrInvalidDate       = fmt.Errorf("invalid date")
	ErrInvalidSkill      = fmt.Errorf("invalid skill")
	ErrInvalidType       = fmt.Errorf("invalid allocation type")
	ErrMissingField      = fmt.Errorf("missing required field")
	ErrEmptyRecord       = fmt.Errorf("empty record")
)
