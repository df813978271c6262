package errors

type NotFoundError struct {
	msg   string
	cause error
}

func (e *NotFoundError) Error() string {
	return e.msg
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

func NewNotFoundError(text string) error {
	return &NotFoundError{msg: text}
}
