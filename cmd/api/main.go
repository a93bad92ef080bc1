package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/auth"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/internal/application/seed"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
	"github.com/jhoicas/access-control-api/internal/infrastructure/mail"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
	"github.com/jhoicas/access-control-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/access-control-api/internal/interfaces/http"
	"github.com/jhoicas/access-control-api/pkg/config"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
	"github.com/jhoicas/access-control-api/pkg/logger"
	"github.com/jhoicas/access-control-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		Name:  cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("db_driver", cfg.DB.Driver).
		Str("mail_driver", cfg.Mail.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner repository.TxRunner
		repos    repository.Repositories
		apiKeys  repository.APIKeyRepository
		scopes   repository.ScopeRepository
	)
	switch cfg.DB.Driver {
	case config.DriverMemory:
		log.Warn().Msg("store en memoria: los datos se pierden al reiniciar")
		st := memory.NewStore()
		txRunner = st
		repos = repository.Repositories{
			Administrators: st.Administrators(),
			Companies:      st.Companies(),
			Memberships:    st.Memberships(),
		}
		apiKeys, scopes = st.APIKeys(), st.Scopes()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		txRunner = postgres.NewTxRunner(pool)
		repos = postgres.Repositories(pool)
		apiKeys, scopes = postgres.NewAPIKeyRepository(pool), postgres.NewScopeRepository(pool)
	}

	tokens, err := jwt.NewService(jwt.Config{
		Secret:      cfg.JWT.Secret,
		Issuer:      cfg.JWT.Issuer,
		AccessTTL:   cfg.JWT.AccessTTL,
		RefreshTTL:  cfg.JWT.RefreshTTL,
		InviteTTL:   cfg.JWT.InviteTTL,
		PasswordTTL: cfg.JWT.PasswordTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("servicio de tokens")
	}

	var mailer ports.EmailSender
	switch cfg.Mail.Driver {
	case config.MailDriverSMTP:
		mailer = mail.NewSMTPSender(cfg.Mail, cfg.JWT.InviteTTL)
	default:
		mailer = mail.NewLogSender(log)
	}

	m := metrics.New("access_control")
	bcryptHasher := hasher.NewBcrypt(cfg.Security.BcryptCost)
	policy := password.NewPolicy()
	guard := access.NewGuard(repos.Memberships)

	workflow := membership.NewWorkflow(membership.Deps{
		Tx:              txRunner,
		Tokens:          tokens,
		Mailer:          mailer,
		Hasher:          bcryptHasher,
		Policy:          policy,
		Metrics:         m,
		Logger:          log,
		FrontendBaseURL: cfg.HTTP.FrontendBaseURL,
	})
	authUC := auth.NewAuthUseCase(auth.Deps{
		Administrators:  repos.Administrators,
		Tx:              txRunner,
		Guard:           guard,
		Tokens:          tokens,
		Hasher:          bcryptHasher,
		Policy:          policy,
		Mailer:          mailer,
		Metrics:         m,
		Logger:          log,
		FrontendBaseURL: cfg.HTTP.FrontendBaseURL,
	})
	companyUC := usecase.NewCompanyUseCase(repos.Companies, txRunner, workflow)
	administratorUC := usecase.NewAdministratorUseCase(repos.Memberships)
	apiKeyUC := usecase.NewAPIKeyUseCase(apiKeys, scopes, bcryptHasher)
	scopeUC := usecase.NewScopeUseCase(scopes)

	if cfg.Seed.Enabled {
		_, err := seed.NewSeeder(txRunner, bcryptHasher, workflow, log).Run(ctx, seed.Input{
			CompanyName: cfg.Seed.CompanyName,
			Email:       cfg.Seed.AdminEmail,
			Username:    cfg.Seed.AdminUsername,
			Password:    cfg.Seed.AdminPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("seed inicial")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Access Control API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		Workflow:        workflow,
		CompanyUC:       companyUC,
		AdministratorUC: administratorUC,
		APIKeyUC:        apiKeyUC,
		ScopeUC:         scopeUC,
		Metrics:         m,
		Logger:          log,
		RateLimit:       cfg.RateLimit,
		ServiceName:     cfg.App.Name,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
