package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/access-control-api/internal/application/auth"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
	"github.com/jhoicas/access-control-api/pkg/config"
	"github.com/jhoicas/access-control-api/pkg/logger"
	"github.com/jhoicas/access-control-api/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC          *auth.AuthUseCase
	Workflow        *membership.Workflow
	CompanyUC       *usecase.CompanyUseCase
	AdministratorUC *usecase.AdministratorUseCase
	APIKeyUC        *usecase.APIKeyUseCase
	ScopeUC         *usecase.ScopeUseCase
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
	RateLimit       config.RateLimitConfig
	ServiceName     string
}

// Router registra middleware global y rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestMiddleware(deps.Logger, deps.Metrics))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")
	limited := RateLimit(deps.RateLimit.PerSecond, deps.RateLimit.Burst)

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", limited, authHandler.Login)
	authGroup.Post("/refresh-token", authHandler.RefreshToken)
	authGroup.Post("/request-password-reset", limited, authHandler.RequestPasswordReset)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Administrators: aceptación y registro con el token de invitación (público)
	adminHandler := NewAdministratorHandler(deps.Workflow, deps.AdministratorUC)
	admins := api.Group("/administrators")
	admins.Post("/accept-invite", adminHandler.AcceptInvite)
	admins.Post("/register-from-invite", adminHandler.RegisterFromInvite)

	// Rutas protegidas (requieren Bearer Token)
	authn := AuthMiddleware(deps.AuthUC)

	admins.Post("/invite", authn, adminHandler.Invite)
	admins.Get("/", authn, RequireCompanyAccess(), adminHandler.List)
	admins.Put("/:id", authn, adminHandler.Update)
	admins.Delete("/", authn, adminHandler.Delete)

	companies := api.Group("/companies", authn)
	companyHandler := NewCompanyHandler(deps.CompanyUC)
	companies.Post("/", companyHandler.Create)
	companies.Get("/", companyHandler.List)
	companies.Get("/:id", companyHandler.GetByID)

	apiKeyHandler := NewAPIKeyHandler(deps.APIKeyUC, deps.ScopeUC)
	apiKeys := api.Group("/api-keys", authn)
	apiKeys.Post("/", apiKeyHandler.Create)
	apiKeys.Get("/", RequireCompanyAccess(), apiKeyHandler.List)
	apiKeys.Put("/:id", apiKeyHandler.Update)
	apiKeys.Delete("/", apiKeyHandler.Delete)
	api.Get("/scopes", authn, apiKeyHandler.ListScopes)
}
