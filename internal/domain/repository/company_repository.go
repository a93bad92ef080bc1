package repository

import (
	"context"

	"github.com/jhoicas/access-control-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
	GetByName(ctx context.Context, name string) (*entity.Company, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*entity.Company, error)
}
