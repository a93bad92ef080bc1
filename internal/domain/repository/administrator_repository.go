package repository

import (
	"context"

	"github.com/jhoicas/access-control-api/internal/domain/entity"
)

// AdministratorRepository define el puerto de persistencia para Administrator (DIP).
// Los Get* devuelven (nil, nil) si no existe.
type AdministratorRepository interface {
	Create(ctx context.Context, admin *entity.Administrator) error
	GetByID(ctx context.Context, id int64) (*entity.Administrator, error)
	GetByEmail(ctx context.Context, email string) (*entity.Administrator, error)
	GetByUsername(ctx context.Context, username string) (*entity.Administrator, error)
	// GetByUsernameOrEmail busca por cualquiera de los dos identificadores (login).
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*entity.Administrator, error)
	Update(ctx context.Context, admin *entity.Administrator) error
}
