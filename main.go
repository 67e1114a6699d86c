package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"concerto-app/config"
	"concerto-app/database"
	authapi "concerto-app/internal/api/auth"
	contactapi "concerto-app/internal/api/contact"
	projectsapi "concerto-app/internal/api/projects"
	registrationsapi "concerto-app/internal/api/registrations"
	stripewebhooks "concerto-app/internal/api/stripewebhook"
	routes "concerto-app/internal/app/http"
	"concerto-app/internal/app/http/middleware"
	"concerto-app/internal/app/logging"
	"concerto-app/internal/domain/concerts"
	"concerto-app/internal/infra/mailer"
	"concerto-app/internal/infra/qrcode"
	"concerto-app/internal/infra/replicate"
	"concerto-app/internal/infra/storage"
	"concerto-app/internal/infra/store"
	stripegw "concerto-app/internal/infra/stripe"
	"concerto-app/internal/infra/ticketpdf"
	"concerto-app/internal/portraits"
	"concerto-app/internal/tickets"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)
	slog.SetDefault(logger)

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBURL)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	event := concerts.MainEvent
	gateway := stripegw.NewGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	registrationStore := store.NewRegistrations(db)
	projectStore := store.NewProjects(db)

	var sender mailer.Sender = mailer.NewResendSender(cfg.Resend.APIKey, cfg.Resend.FromEmail, event)
	if cfg.IsLocal() {
		sender = mailer.NewLogSender(logger, event)
	}

	engine := tickets.NewEngine(tickets.Deps{
		Store:    registrationStore,
		Gateway:  gateway,
		Codes:    qrcode.NewGenerator(cfg.PublicURL),
		Renderer: ticketpdf.NewRenderer(event, ticketpdf.LogoLoader(cfg.LogoPath, logger)),
		Sender:   sender,
		Events:   store.NewWebhookEvents(db),
		Projects: projectStore,
		Origin:   cfg.PublicURL,
		Logger:   logger,
	})

	portraitDeps := portraits.Deps{
		Store:         projectStore,
		Checkout:      gateway,
		InputBucket:   cfg.Storage.InputBucket,
		OutputBucket:  cfg.Storage.OutputBucket,
		DefaultPrompt: cfg.Replicate.Prompt,
		PriceMinor:    cfg.Replicate.PriceCents,
		Currency:      concerts.DefaultCurrency,
		Origin:        cfg.PublicURL,
		Logger:        logger,
	}
	if cfg.Storage.Enabled() {
		objects, err := storage.New(context.Background(), storage.Options{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PublicURL:       cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.Error("object storage unavailable", "error", err)
			os.Exit(1)
		}
		portraitDeps.Objects = objects
	}
	if cfg.Replicate.APIToken != "" {
		generator, err := replicate.NewClient(cfg.Replicate.APIToken, cfg.Replicate.Model)
		if err != nil {
			logger.Error("image generation unavailable", "error", err)
			os.Exit(1)
		}
		portraitDeps.Generator = generator
	}

	var google *authapi.GoogleAuth
	if cfg.Google.Enabled() {
		google = authapi.NewGoogleAuth(authapi.GoogleConfig{
			ClientID:         cfg.Google.ClientID,
			ClientSecret:     cfg.Google.ClientSecret,
			RedirectURL:      cfg.Google.RedirectURL,
			FrontendRedirect: cfg.Google.FrontendRedirect,
			SecureCookies:    !cfg.IsLocal(),
		})
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Webhook:       stripewebhooks.NewHandler(engine, logger),
		Auth:          authapi.NewHandler(store.NewUsers(db), cfg.JWTSecret, google, logger),
		Registrations: registrationsapi.NewHandler(engine),
		Projects:      projectsapi.NewHandler(portraits.NewService(portraitDeps)),
		Contact:       contactapi.NewHandler(store.NewContacts(db), logger),
		GoogleSignIn:  google != nil,
		JWTSecret:     cfg.JWTSecret,
	})

	logger.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
