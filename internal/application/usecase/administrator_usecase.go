package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

// AdministratorUseCase consultas de administradores por empresa.
type AdministratorUseCase struct {
	memberships repository.MembershipRepository
}

// NewAdministratorUseCase construye el caso de uso con el puerto de persistencia.
func NewAdministratorUseCase(memberships repository.MembershipRepository) *AdministratorUseCase {
	return &AdministratorUseCase{memberships: memberships}
}

// ListByCompany lista con paginación los administradores vinculados a la empresa,
// incluidos invitados y deshabilitados. Requiere acceso del principal a la empresa.
func (uc *AdministratorUseCase) ListByCompany(ctx context.Context, p *access.Principal, companyID int64, page dto.PageRequest) (*dto.MembershipListResponse, error) {
	if err := access.RequireAccess(p, companyID); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, total, err := uc.memberships.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	items := make([]dto.MembershipResponse, 0, len(list))
	for _, v := range list {
		items = append(items, membership.ToMembershipResponse(v))
	}
	return &dto.MembershipListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}
