package portraits

import "fmt"

type ErrorReason string

const (
	ReasonInvalidInput     ErrorReason = "INVALID_INPUT"
	ReasonNotFound         ErrorReason = "NOT_FOUND"
	ReasonForbidden        ErrorReason = "FORBIDDEN"
	ReasonPaymentRequired  ErrorReason = "PAYMENT_REQUIRED"
	ReasonAlreadyPaid      ErrorReason = "ALREADY_PAID"
	ReasonInProgress       ErrorReason = "GENERATION_IN_PROGRESS"
	ReasonUnavailable      ErrorReason = "UNAVAILABLE"
	ReasonStorageFailure   ErrorReason = "STORAGE_FAILURE"
	ReasonGatewayFailure   ErrorReason = "GATEWAY_FAILURE"
	ReasonStoreFailure     ErrorReason = "STORE_FAILURE"
	ReasonGenerationFailed ErrorReason = "GENERATION_FAILED"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(reason ErrorReason, message string, cause error) *Error {
	return &Error{Reason: reason, Message: message, Cause: cause}
}
