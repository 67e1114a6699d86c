package routes

import (
	authapi "concerto-app/internal/api/auth"
	contactapi "concerto-app/internal/api/contact"
	projectsapi "concerto-app/internal/api/projects"
	registrationsapi "concerto-app/internal/api/registrations"
	stripewebhooks "concerto-app/internal/api/stripewebhook"
	"concerto-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Webhook       *stripewebhooks.Handler
	Auth          *authapi.Handler
	Registrations *registrationsapi.Handler
	Projects      *projectsapi.Handler
	Contact       *contactapi.Handler
	// GoogleSignIn registers the Google OpenID Connect routes.
	GoogleSignIn bool
	JWTSecret    string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// raw body is needed for signature verification, keep it out of the sanitizer
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.POST("/contact", h.Contact.Submit)

	if h.GoogleSignIn {
		public.GET("/auth/google", h.Auth.GoogleStart)
		public.GET("/auth/google/callback", h.Auth.GoogleCallback)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret))
	auth.GET("/me", h.Auth.Me)
	auth.POST("/change-password", middleware.SanitizeAndCleanInputMiddleware(), h.Auth.ChangePassword)

	h.Registrations.Register(auth.Group("/", middleware.SanitizeAndCleanInputMiddleware()))
	h.Projects.Register(auth)
}
