package errors

// ConflictError is returned when a request clashes with the state of a
// resource, like editing a deleted rule or using a disabled operation.
type ConflictError struct {
	msg   string
	cause error
}

func (e *ConflictError) Error() string {
	return e.msg
}

func (e *ConflictError) Unwrap() error {
	return e.cause
}

func NewConflictError(text string) error {
	return &ConflictError{msg: text}
}
