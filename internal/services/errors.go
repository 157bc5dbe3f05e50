package services

import "errors"

// Errors surfaced by ProductService. Handlers map these onto HTTP
// statuses; anything else is treated as a store failure.
var (
	// ErrNotFound means no product matched the request.
	ErrNotFound = errors.New("product not found")
	// ErrNameTaken means the requested product name is already in use.
	ErrNameTaken = errors.New("product name already exists")
	// ErrStillStocked means a delete was blocked by remaining stock.
	ErrStillStocked = errors.New("product is still in stock")
)

// ValidationError reports malformed, missing, extra or out-of-range
// request input. Its message is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
