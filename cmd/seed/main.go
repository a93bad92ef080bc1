// seed aplica migraciones y crea la empresa inicial con su administrador OWNER
// en PostgreSQL, sin levantar el servidor HTTP.
//
// Uso: go run ./cmd/seed
// Lee la misma configuración que la API (SEED_COMPANY_NAME, SEED_ADMIN_EMAIL,
// SEED_ADMIN_USERNAME, SEED_ADMIN_PASSWORD, DB_*). Es idempotente.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/seed"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/infrastructure/postgres"
	"github.com/jhoicas/access-control-api/pkg/config"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
	"github.com/jhoicas/access-control-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	if cfg.DB.Driver != config.DriverPostgres {
		return fmt.Errorf("DB_DRIVER=%s: el seed solo aplica a postgres", cfg.DB.Driver)
	}
	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL y SEED_ADMIN_PASSWORD son requeridos")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Name: "seed"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migraciones: %w", err)
	}

	tokens, err := jwt.NewService(jwt.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	if err != nil {
		return err
	}
	txRunner := postgres.NewTxRunner(pool)
	bcryptHasher := hasher.NewBcrypt(cfg.Security.BcryptCost)
	workflow := membership.NewWorkflow(membership.Deps{
		Tx:     txRunner,
		Tokens: tokens,
		Hasher: bcryptHasher,
		Policy: password.NewPolicy(),
		Logger: log,
	})

	res, err := seed.NewSeeder(txRunner, bcryptHasher, workflow, log).Run(ctx, seed.Input{
		CompanyName: cfg.Seed.CompanyName,
		Email:       cfg.Seed.AdminEmail,
		Username:    cfg.Seed.AdminUsername,
		Password:    cfg.Seed.AdminPassword,
	})
	if err != nil {
		return err
	}
	fmt.Printf("empresa %d, administrador %d\n", res.CompanyID, res.AdministratorID)
	return nil
}
