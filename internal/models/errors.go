package models

import "fmt"

// Reason is a stable, enumerable failure code crossing the session boundary.
// Normalization and aggregation conditions never surface as one of these;
// they resolve to defaults inside the pipeline.
type Reason string

const (
	ReasonInvalidLocator    Reason = "INVALID_LOCATOR"
	ReasonSheetNotFound     Reason = "SHEET_NOT_FOUND"
	ReasonSheetAccessDenied Reason = "SHEET_ACCESS_DENIED"
	ReasonSheetUnavailable  Reason = "SHEET_UNAVAILABLE"
	ReasonClassifierDown    Reason = "CLASSIFICATION_UNAVAILABLE"
	ReasonPlaceNotFound     Reason = "PLACE_NOT_FOUND"
	ReasonPlacesUnavailable Reason = "PLACES_UNAVAILABLE"
	ReasonBadRequest        Reason = "BAD_REQUEST"
)

// Error carries a reason code plus the collaborator's diagnostic message.
type Error struct {
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Reason) + ": " + e.Message
	}
	return string(e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a reason-coded error with a formatted message.
func NewError(r Reason, format string, args ...any) *Error {
	return &Error{Reason: r, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches a reason code to a collaborator failure.
func WrapError(r Reason, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Reason: r, Message: msg, Cause: cause}
}
