package errors

type InternalError struct {
	msg   string
	cause error
}

func (e *InternalError) Error() string {
	return e.msg
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

func NewInternalError(text string) error {
	return &InternalError{msg: text}
}
