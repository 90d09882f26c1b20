package domain

import "errors"

// Domain errors
var (
	// Catalog errors
	ErrCafeNotFound = errors.New("cafe not found")
	ErrSeatNotFound = errors.New("seat not found")
	ErrSeatIsWall   = errors.New("seat is a wall segment")

	// Session errors
	ErrSeatOccupied      = errors.New("seat is already in use")
	ErrUserAlreadySeated = errors.New("user already has an active seat")

	// Viewer errors
	ErrViewerNotFound = errors.New("viewer not found")

	// Validation errors
	ErrInvalidCafeID   = errors.New("invalid cafe id")
	ErrInvalidSeatID   = errors.New("invalid seat id")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidViewport = errors.New("viewport width and height must be positive")
	ErrInvalidZoom     = errors.New("zoom requires a direction or a positive scale")
	ErrInvalidRequest  = errors.New("invalid request")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCafeNotFound) ||
		errors.Is(err, ErrSeatNotFound) ||
		errors.Is(err, ErrViewerNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCafeID) ||
		errors.Is(err, ErrInvalidSeatID) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidViewport) ||
		errors.Is(err, ErrInvalidZoom) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSeatIsWall)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSeatOccupied) ||
		errors.Is(err, ErrUserAlreadySeated)
}
