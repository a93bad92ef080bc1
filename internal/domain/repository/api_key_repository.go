package repository

import (
	"context"

	"github.com/jhoicas/access-control-api/internal/domain/entity"
)

// APIKeyRepository persistencia de API keys y sus scopes. Las operaciones por ID
// se acotan a la empresa; una key de otra empresa se trata como inexistente.
type APIKeyRepository interface {
	// Create asigna ID y guarda la key con sus scopes de forma atómica.
	Create(ctx context.Context, key *entity.APIKey) error
	GetByID(ctx context.Context, companyID, id int64) (*entity.APIKey, error)
	ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.APIKey, int, error)
	// Update reemplaza nombre, descripción, estado y scopes. Devuelve ErrAPIKeyNotFound si no existe.
	Update(ctx context.Context, key *entity.APIKey) error
	// DeleteMany borra las keys indicadas de la empresa y devuelve cuántas borró.
	DeleteMany(ctx context.Context, companyID int64, ids []int64) (int, error)
}

// ScopeRepository catálogo de scopes.
type ScopeRepository interface {
	ListEnabled(ctx context.Context) ([]*entity.Scope, error)
	// GetEnabledByKeys devuelve los scopes habilitados cuyo key está en keys.
	GetEnabledByKeys(ctx context.Context, keys []string) ([]*entity.Scope, error)
}
