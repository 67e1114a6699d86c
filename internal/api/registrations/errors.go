package registrations

import (
	"errors"
	"net/http"

	"concerto-app/internal/tickets"

	"github.com/gin-gonic/gin"
)

var statusByReason = map[tickets.ErrorReason]int{
	tickets.ReasonInvalidInput:        http.StatusBadRequest,
	tickets.ReasonMissingEmail:        http.StatusBadRequest,
	tickets.ReasonInvalidSignature:    http.StatusBadRequest,
	tickets.ReasonInvalidPayload:      http.StatusBadRequest,
	tickets.ReasonNotFound:            http.StatusNotFound,
	tickets.ReasonForbidden:           http.StatusForbidden,
	tickets.ReasonNoCheckoutSession:   http.StatusConflict,
	tickets.ReasonPaymentNotConfirmed: http.StatusConflict,
	tickets.ReasonAlreadyConfirmed:    http.StatusConflict,
	tickets.ReasonCancelled:           http.StatusConflict,
	tickets.ReasonNotIssuable:         http.StatusConflict,
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	var te *tickets.Error
	if errors.As(err, &te) {
		if status, ok := statusByReason[te.Reason]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)

	var te *tickets.Error
	if !errors.As(err, &te) {
		c.JSON(status, gin.H{"error": "Internal server error", "code": "INTERNAL"})
		return
	}
	msg := te.Message
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg, "code": te.Reason})
}
