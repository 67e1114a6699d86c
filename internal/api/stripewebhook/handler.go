package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"concerto-app/internal/tickets"

	"github.com/gin-gonic/gin"
)

const maxPayloadBytes = 65536

type Processor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (tickets.WebhookResult, error)
}

type Handler struct {
	processor Processor
	logger    *slog.Logger
}

func NewHandler(p Processor, logger *slog.Logger) *Handler {
	return &Handler{processor: p, logger: logger}
}

// StripeWebhook acknowledges every verified delivery. Only deliveries that
// cannot be trusted are rejected, so the provider stops retrying events we
// already handled or can never handle.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxPayloadBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading request body"})
		return
	}

	res, err := h.processor.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		var te *tickets.Error
		if errors.As(err, &te) && te.Reason == tickets.ReasonInvalidPayload {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		h.logger.WarnContext(c.Request.Context(), "stripe signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	if res.Err != nil {
		h.logger.ErrorContext(c.Request.Context(), "webhook processing failed",
			"event_id", res.EventID, "outcome", res.Outcome, "error", res.Err)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
