package errx

// Type categorizes an error.
type Type string

const (
	// TypeInternal is an unexpected failure inside this process.
	TypeInternal Type = "INTERNAL"

	// TypeValidation is a malformed or rejected input.
	TypeValidation Type = "VALIDATION"

	// TypeNotFound is a missing resource.
	TypeNotFound Type = "NOT_FOUND"

	// TypeConflict is a state conflict (e.g. operation not valid in the
	// resource's current state).
	TypeConflict Type = "CONFLICT"

	// TypeExternal is a failure reported by, or while reaching, an
	// external collaborator such as the queue backend.
	TypeExternal Type = "EXTERNAL"
)

// String returns the string representation of the error type.
func (t Type) String() string {
	return string(t)
}

// typeToHTTPStatus maps error types to HTTP status codes.
func typeToHTTPStatus(t Type) int {
	switch t {
	case TypeValidation:
		return 400
	case TypeNotFound:
		return 404
	case TypeConflict:
		return 409
	case TypeExternal:
		return 502
	default:
		return 500
	}
}
