package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

// Provisioner vincula un administrador a una empresa dentro de una transacción abierta.
type Provisioner interface {
	Provision(ctx context.Context, repos repository.Repositories, administratorID, companyID int64, role entity.Role) (*dto.MembershipResponse, error)
}

// CompanyUseCase aplica reglas de negocio para empresas (casos de uso).
type CompanyUseCase struct {
	repo        repository.CompanyRepository
	tx          repository.TxRunner
	provisioner Provisioner
}

// NewCompanyUseCase construye el caso de uso con el puerto de persistencia.
func NewCompanyUseCase(repo repository.CompanyRepository, tx repository.TxRunner, provisioner Provisioner) *CompanyUseCase {
	return &CompanyUseCase{repo: repo, tx: tx, provisioner: provisioner}
}

// Create crea una empresa y deja al principal como OWNER en la misma transacción.
// Devuelve Conflict si el nombre ya existe.
func (uc *CompanyUseCase) Create(ctx context.Context, p *access.Principal, in dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if p == nil {
		return nil, domain.ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if err := entity.ValidateCompanyName(name); err != nil {
		return nil, err
	}
	var company *entity.Company
	err := uc.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		existing, err := repos.Companies.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("get company by name: %w", err)
		}
		if existing != nil {
			return domain.Errorf(domain.KindConflict, "ya existe una empresa llamada %q", name)
		}
		company = &entity.Company{Name: name, CreatedAt: time.Now()}
		if err := repos.Companies.Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		_, err = uc.provisioner.Provision(ctx, repos, p.ID, company.ID, entity.RoleOwner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entityToCompanyResponse(company), nil
}

// ListForPrincipal lista las empresas en las que el principal tiene vínculo activo.
func (uc *CompanyUseCase) ListForPrincipal(ctx context.Context, p *access.Principal) (*dto.CompanyListResponse, error) {
	if p == nil {
		return nil, domain.ErrUnauthorized
	}
	items := make([]dto.CompanyResponse, 0, len(p.CompanyIDs))
	if len(p.CompanyIDs) == 0 {
		return &dto.CompanyListResponse{Items: items}, nil
	}
	list, err := uc.repo.ListByIDs(ctx, p.CompanyIDs)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	for _, c := range list {
		items = append(items, *entityToCompanyResponse(c))
	}
	return &dto.CompanyListResponse{Items: items}, nil
}

// GetByID devuelve una empresa a la que el principal tiene acceso.
func (uc *CompanyUseCase) GetByID(ctx context.Context, p *access.Principal, id int64) (*dto.CompanyResponse, error) {
	if err := access.RequireAccess(p, id); err != nil {
		return nil, err
	}
	c, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if c == nil {
		return nil, domain.ErrCompanyNotFound
	}
	return entityToCompanyResponse(c), nil
}

func entityToCompanyResponse(c *entity.Company) *dto.CompanyResponse {
	if c == nil {
		return nil
	}
	return &dto.CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}
