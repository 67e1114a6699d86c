package registrations

import (
	"context"
	"net/http"
	"strconv"

	"concerto-app/internal/app/http/middleware"
	"concerto-app/internal/domain/payments"
	"concerto-app/internal/domain/registrations"
	"concerto-app/internal/tickets"

	"github.com/gin-gonic/gin"
)

type TicketService interface {
	StartCheckout(ctx context.Context, actorID string, in tickets.CheckoutInput) (tickets.CheckoutResult, error)
	ListForOwner(ctx context.Context, actorID string) ([]registrations.Registration, error)
	SendTicket(ctx context.Context, actorID, id string) (tickets.SendResult, error)
	DownloadTicket(ctx context.Context, actorID, id string) (tickets.Ticket, error)
	ResumePayment(ctx context.Context, actorID, id string) (payments.Session, error)
}

type Handler struct {
	tickets TicketService
}

func NewHandler(s TicketService) *Handler {
	return &Handler{tickets: s}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/registrations", h.List)
	rg.POST("/registrations/checkout", h.Checkout)
	rg.POST("/registrations/:id/send-ticket", h.SendTicket)
	rg.GET("/registrations/:id/ticket", h.DownloadTicket)
	rg.POST("/registrations/:id/resume", h.Resume)
}

func (h *Handler) Checkout(c *gin.Context) {
	var in tickets.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": tickets.ReasonInvalidInput})
		return
	}

	res, err := h.tickets.StartCheckout(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"sessionId":    res.Session.ID,
		"sessionUrl":   res.Session.URL,
		"registration": res.Registration,
	})
}

func (h *Handler) List(c *gin.Context) {
	regs, err := h.tickets.ListForOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if regs == nil {
		regs = []registrations.Registration{}
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs})
}

func (h *Handler) SendTicket(c *gin.Context) {
	res, err := h.tickets.SendTicket(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DownloadTicket(c *gin.Context) {
	ticket, err := h.tickets.DownloadTicket(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(ticket.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", ticket.PDF)
}

func (h *Handler) Resume(c *gin.Context) {
	session, err := h.tickets.ResumePayment(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "sessionUrl": session.URL})
}
