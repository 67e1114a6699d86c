package tickets

import "fmt"

type ErrorReason string

const (
	ReasonInvalidInput         ErrorReason = "INVALID_INPUT"
	ReasonNotFound             ErrorReason = "NOT_FOUND"
	ReasonForbidden            ErrorReason = "FORBIDDEN"
	ReasonNoCheckoutSession    ErrorReason = "NO_CHECKOUT_SESSION"
	ReasonPaymentNotConfirmed  ErrorReason = "PAYMENT_NOT_CONFIRMED"
	ReasonAlreadyConfirmed     ErrorReason = "ALREADY_CONFIRMED"
	ReasonCancelled            ErrorReason = "CANCELLED"
	ReasonNotIssuable          ErrorReason = "NOT_ISSUABLE"
	ReasonMissingEmail         ErrorReason = "MISSING_EMAIL"
	ReasonInvalidSignature     ErrorReason = "INVALID_SIGNATURE"
	ReasonInvalidPayload       ErrorReason = "INVALID_PAYLOAD"
	ReasonGatewayFailure       ErrorReason = "GATEWAY_FAILURE"
	ReasonStoreFailure         ErrorReason = "STORE_FAILURE"
	ReasonCodeGenerationFailed ErrorReason = "CODE_GENERATION_FAILED"
	ReasonRenderFailed         ErrorReason = "RENDER_FAILED"
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

func newTicketError(reason ErrorReason, message string, cause error) *Error {
	return &Error{Reason: reason, Message: message, Cause: cause}
}

func NewInvalidInputError(message string) *Error {
	return newTicketError(ReasonInvalidInput, message, nil)
}

func NewNotFoundError(id string, cause error) *Error {
	return newTicketError(ReasonNotFound, fmt.Sprintf("registration %s not found", id), cause)
}

func NewForbiddenError(id string) *Error {
	return newTicketError(ReasonForbidden, fmt.Sprintf("registration %s belongs to another account", id), nil)
}

func NewNoCheckoutSessionError() *Error {
	return newTicketError(ReasonNoCheckoutSession, "no checkout session associated with this registration", nil)
}

func NewPaymentNotConfirmedError() *Error {
	return newTicketError(ReasonPaymentNotConfirmed, "payment not yet confirmed", nil)
}

func NewAlreadyConfirmedError(message string) *Error {
	return newTicketError(ReasonAlreadyConfirmed, message, nil)
}

func NewCancelledError(message string) *Error {
	return newTicketError(ReasonCancelled, message, nil)
}

func NewNotIssuableError(message string) *Error {
	return newTicketError(ReasonNotIssuable, message, nil)
}

func NewMissingEmailError() *Error {
	return newTicketError(ReasonMissingEmail, "no contact email on this registration", nil)
}

func NewInvalidSignatureError(cause error) *Error {
	return newTicketError(ReasonInvalidSignature, "webhook signature verification failed", cause)
}

func NewInvalidPayloadError(cause error) *Error {
	return newTicketError(ReasonInvalidPayload, "webhook payload could not be decoded", cause)
}

func NewGatewayFailureError(message string, cause error) *Error {
	return newTicketError(ReasonGatewayFailure, message, cause)
}

func NewStoreFailureError(message string, cause error) *Error {
	return newTicketError(ReasonStoreFailure, message, cause)
}

func NewCodeGenerationFailedError(cause error) *Error {
	return newTicketError(ReasonCodeGenerationFailed, "verification code could not be generated", cause)
}

func NewRenderFailedError(cause error) *Error {
	return newTicketError(ReasonRenderFailed, "ticket document could not be rendered", cause)
}
