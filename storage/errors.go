package storage

import "errors"

// Storage error constants
var (
	// ErrOrganizationNotFound is returned when an organization is not found
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrBuildingNotFound is returned when a building is not found
	ErrBuildingNotFound = errors.New("building not found")

	// ErrActivityNotFound is returned when an activity is not found
	ErrActivityNotFound = errors.New("activity not found")

	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("constraint violation")
)
