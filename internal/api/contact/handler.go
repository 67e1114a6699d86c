package contact

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"concerto-app/internal/domain/contacts"

	"github.com/gin-gonic/gin"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type Store interface {
	Create(ctx context.Context, c *contacts.Contact) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Submit stores a contact form entry. Names are unique; a repeated name is
// reported as a conflict.
func (h *Handler) Submit(c *gin.Context) {
	var input struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email are required"})
		return
	}
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	entry := contacts.Contact{NomPrenom: name, Email: email}
	if msg := strings.TrimSpace(input.Message); msg != "" {
		entry.Message = &msg
	}

	err := h.store.Create(c.Request.Context(), &entry)
	if errors.Is(err, contacts.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "This name is already registered"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "contact form not saved", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}
