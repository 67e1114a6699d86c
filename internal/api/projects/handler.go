package projects

import (
	"context"
	"errors"
	"io"
	"net/http"

	"concerto-app/internal/app/http/middleware"
	"concerto-app/internal/domain/projects"
	"concerto-app/internal/portraits"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = 10 << 20

type Service interface {
	StartCheckout(ctx context.Context, actorID string, in portraits.CheckoutInput) (portraits.CheckoutResult, error)
	Generate(ctx context.Context, actorID, id string) (projects.Project, error)
	Delete(ctx context.Context, actorID, id string) ([]string, error)
	List(ctx context.Context, actorID string) ([]projects.Project, error)
}

type Handler struct {
	portraits Service
}

func NewHandler(s Service) *Handler {
	return &Handler{portraits: s}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/projects", h.List)
	rg.POST("/projects/checkout", h.Checkout)
	rg.DELETE("/projects/:id", h.Delete)
	rg.POST("/generate", h.Generate)
}

var statusByReason = map[portraits.ErrorReason]int{
	portraits.ReasonInvalidInput:    http.StatusBadRequest,
	portraits.ReasonNotFound:        http.StatusNotFound,
	portraits.ReasonForbidden:       http.StatusForbidden,
	portraits.ReasonPaymentRequired: http.StatusPaymentRequired,
	portraits.ReasonAlreadyPaid:     http.StatusConflict,
	portraits.ReasonInProgress:      http.StatusConflict,
	portraits.ReasonUnavailable:     http.StatusServiceUnavailable,
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	var pe *portraits.Error
	if !errors.As(err, &pe) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL"})
		return
	}
	status, ok := statusByReason[pe.Reason]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": pe.Message, "code": pe.Reason})
}

func (h *Handler) Checkout(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes+1<<20)

	in := portraits.CheckoutInput{
		ProjectID: c.PostForm("projectId"),
		Prompt:    c.PostForm("prompt"),
	}
	if fh, err := c.FormFile("image"); err == nil {
		if fh.Size > maxImageBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable image"})
			return
		}
		in.Image = &portraits.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		}
	}

	res, err := h.portraits.StartCheckout(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"sessionId":  res.Session.ID,
		"sessionUrl": res.Session.URL,
		"project":    res.Project,
	})
}

func (h *Handler) Generate(c *gin.Context) {
	var body struct {
		ProjectID string `json:"projectId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projectId is required", "code": portraits.ReasonInvalidInput})
		return
	}

	p, err := h.portraits.Generate(c.Request.Context(), middleware.UserID(c), body.ProjectID)
	if err != nil {
		writeError(c, err)
		return
	}
	imageURL := ""
	if p.OutputImageURL != nil {
		imageURL = *p.OutputImageURL
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL, "project": p})
}

func (h *Handler) Delete(c *gin.Context) {
	warnings, err := h.portraits.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"success": true}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	out, err := h.portraits.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if out == nil {
		out = []projects.Project{}
	}
	c.JSON(http.StatusOK, gin.H{"projects": out})
}
