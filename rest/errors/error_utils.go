package errors

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/crmkit/crm-data-apis/filter"
	"github.com/crmkit/crm-data-apis/rules"
	"github.com/crmkit/crm-data-apis/store"
)

// TranslateValidatorError takes an error from the go-playground validator (internally just a map of errors) and
// converts it into a BadRequestError with user friendly messages, sorted so that responses are stable.
func TranslateValidatorError(err error, trans ut.Translator) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := validationErrors.Translate(trans)
	vals := make([]string, 0, len(errs))
	for _, value := range errs {
		vals = append(vals, value)
	}
	sort.Strings(vals)

	return &BadRequestError{msg: strings.Join(vals, " "), cause: err}
}

// Classify wraps errors returned by the domain packages into the typed errors
// above. Errors that are already typed, or unknown, are returned as they are.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case isTyped(err):
		return err
	case errors.Is(err, store.ErrRecordNotFound),
		errors.Is(err, store.ErrUnknownEntity),
		errors.Is(err, store.ErrRuleNotFound),
		errors.Is(err, rules.ErrConditionNotFound),
		errors.Is(err, rules.ErrActionNotFound):
		return &NotFoundError{msg: err.Error(), cause: err}
	case errors.Is(err, rules.ErrRuleDeleted),
		errors.Is(err, rules.ErrDuplicateID):
		return &ConflictError{msg: err.Error(), cause: err}
	case errors.Is(err, store.ErrUnknownField),
		errors.Is(err, store.ErrReadOnlyField),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, rules.ErrInvalidRule),
		errors.Is(err, rules.ErrInvalidPayload),
		errors.Is(err, rules.ErrInvalidConditionKind),
		errors.Is(err, rules.ErrInvalidActionKind),
		isFilterError(err):
		return &BadRequestError{msg: err.Error(), cause: err}
	}
	return err
}

// StatusCode returns the HTTP status for an error, classifying it first.
func StatusCode(err error) int {
	switch Classify(err).(type) {
	case *BadRequestError:
		return http.StatusBadRequest
	case *NotFoundError:
		return http.StatusNotFound
	case *ConflictError:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Code names the kind of error for the response body.
func Code(err error) string {
	return CodeForStatus(StatusCode(err))
}

func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "internal"
}

func isTyped(err error) bool {
	switch err.(type) {
	case *BadRequestError, *NotFoundError, *ConflictError, *InternalError:
		return true
	}
	return false
}

func isFilterError(err error) bool {
	var validationErr *filter.ValidationError
	return errors.As(err, &validationErr) ||
		errors.Is(err, filter.ErrUnknownOperator) ||
		errors.Is(err, filter.ErrUnknownField) ||
		errors.Is(err, filter.ErrUnknownConnector) ||
		errors.Is(err, filter.ErrMissingField) ||
		errors.Is(err, filter.ErrInvalidValue) ||
		errors.Is(err, filter.ErrUnsupported)
}
