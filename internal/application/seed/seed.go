// Package seed crea la empresa inicial con su administrador OWNER.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
	"github.com/jhoicas/access-control-api/pkg/logger"
)

// Provisioner vincula un administrador a una empresa dentro de una transacción abierta.
type Provisioner interface {
	Provision(ctx context.Context, repos repository.Repositories, administratorID, companyID int64, role entity.Role) (*dto.MembershipResponse, error)
}

// Input datos iniciales.
type Input struct {
	CompanyName string
	Email       string
	Username    string
	Password    string
}

// Result identificadores resultantes y qué se creó en esta ejecución.
type Result struct {
	CompanyID          int64
	AdministratorID    int64
	CompanyCreated     bool
	AdministratorAdded bool
	MembershipCreated  bool
}

// Seeder ejecuta la carga inicial.
type Seeder struct {
	tx          repository.TxRunner
	hasher      ports.PasswordHasher
	policy      password.Policy
	provisioner Provisioner
	log         *logger.Logger
}

// NewSeeder construye el seeder.
func NewSeeder(tx repository.TxRunner, hasher ports.PasswordHasher, provisioner Provisioner, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{tx: tx, hasher: hasher, policy: password.NewPolicy(), provisioner: provisioner, log: log}
}

// Run es idempotente: reutiliza empresa, administrador y vínculo si ya existen.
// Un administrador existente conserva su contraseña.
func (s *Seeder) Run(ctx context.Context, in Input) (*Result, error) {
	name := strings.TrimSpace(in.CompanyName)
	if err := entity.ValidateCompanyName(name); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if err := entity.ValidateEmail(email); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if err := entity.ValidateUsername(username); err != nil {
		return nil, err
	}

	res := &Result{}
	err := s.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		company, err := repos.Companies.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("get company by name: %w", err)
		}
		if company == nil {
			company = &entity.Company{Name: name, CreatedAt: time.Now()}
			if err := repos.Companies.Create(ctx, company); err != nil {
				return fmt.Errorf("create company: %w", err)
			}
			res.CompanyCreated = true
		}
		res.CompanyID = company.ID

		admin, err := repos.Administrators.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("get administrator by email: %w", err)
		}
		if admin == nil {
			if err := s.policy.Validate(in.Password); err != nil {
				return err
			}
			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			now := time.Now()
			admin = &entity.Administrator{
				Email:        email,
				Username:     username,
				PasswordHash: hash,
				FirstName:    "Administrador",
				LastName:     name,
				RegisteredAt: &now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := repos.Administrators.Create(ctx, admin); err != nil {
				return fmt.Errorf("create administrator: %w", err)
			}
			res.AdministratorAdded = true
		}
		res.AdministratorID = admin.ID

		m, err := repos.Memberships.Get(ctx, admin.ID, company.ID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if m != nil {
			return nil
		}
		if _, err := s.provisioner.Provision(ctx, repos, admin.ID, company.ID, entity.RoleOwner); err != nil {
			return err
		}
		res.MembershipCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("company_id", res.CompanyID).
		Int64("administrator_id", res.AdministratorID).
		Bool("company_created", res.CompanyCreated).
		Bool("administrator_created", res.AdministratorAdded).
		Bool("membership_created", res.MembershipCreated).
		Msg("seed aplicado")
	return res, nil
}
