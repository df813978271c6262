package errors

// BadRequestError is returned for payloads that can't be turned into a
// valid query, patch or rule.
type BadRequestError struct {
	msg   string
	cause error
}

func (e *BadRequestError) Error() string {
	return e.msg
}

func (e *BadRequestError) Unwrap() error {
	return e.cause
}

func NewBadRequestError(text string) error {
	return &BadRequestError{msg: text}
}
