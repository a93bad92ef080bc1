package repository

import (
	"context"

	"github.com/jhoicas/access-control-api/internal/domain/entity"
)

// MembershipRepository persistencia de vínculos administrador-empresa, indexados por
// (administrator_id, company_id).
type MembershipRepository interface {
	Create(ctx context.Context, m *entity.Membership) error
	Get(ctx context.Context, administratorID, companyID int64) (*entity.Membership, error)
	Update(ctx context.Context, m *entity.Membership) error
	ListByAdministratorsAndCompany(ctx context.Context, administratorIDs []int64, companyID int64) ([]*entity.Membership, error)
	// ListActiveByAdministrator vínculos habilitados y aceptados del administrador.
	ListActiveByAdministrator(ctx context.Context, administratorID int64) ([]*entity.Membership, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.MembershipView, int, error)
	DeleteMany(ctx context.Context, keys []entity.MembershipKey) error
	// CountActive cuenta en todo el sistema los vínculos con enabled=true AND accepted=true.
	CountActive(ctx context.Context) (int, error)
}
