package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/app"
	iauth "github.com/equipped-com/platform-api/internal/auth"
	"github.com/equipped-com/platform-api/internal/handlers"
	"github.com/equipped-com/platform-api/internal/middleware"
	"github.com/equipped-com/platform-api/internal/services"
	"github.com/equipped-com/platform-api/internal/store"
	"github.com/equipped-com/platform-api/internal/tenant"
	"github.com/equipped-com/platform-api/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	r.NoRoute(middleware.NotFoundHandler)

	// Public endpoints
	r.GET("/health", handlers.Health())
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Shared services
	invitationStore, err := store.NewInvitationStore(db)
	if err != nil {
		return nil, err
	}
	resolver, err := tenant.NewResolver(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	accounts, err := services.NewAccountService(db, users)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	})
	if err != nil {
		return nil, err
	}
	notifier := services.NewNotificationService(mailer, cfg.Server.BaseURL)

	invitations, err := services.NewInvitationService(db, invitationStore, notifier, audit)
	if err != nil {
		return nil, err
	}

	registerAuthRoutes(r, users, accounts, jwt)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	registerInvitationRoutes(api, resolver, invitations, users)

	return r, nil
}
