package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.ScopeRepository = (*ScopeRepo)(nil)

// ScopeRepo catálogo de scopes sobre PostgreSQL.
type ScopeRepo struct {
	q Querier
}

// NewScopeRepository construye el adaptador.
func NewScopeRepository(q Querier) *ScopeRepo {
	return &ScopeRepo{q: q}
}

// ListEnabled lista los scopes habilitados ordenados por key.
func (r *ScopeRepo) ListEnabled(ctx context.Context) ([]*entity.Scope, error) {
	rows, err := r.q.Query(ctx, `SELECT id, key, name, description, enabled FROM scopes WHERE enabled ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return scanScopes(rows)
}

// GetEnabledByKeys devuelve los scopes habilitados con key en keys.
func (r *ScopeRepo) GetEnabledByKeys(ctx context.Context, keys []string) ([]*entity.Scope, error) {
	if len(keys) == 0 {
		return []*entity.Scope{}, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT id, key, name, description, enabled FROM scopes WHERE enabled AND key = ANY($1::text[]) ORDER BY key`, keys)
	if err != nil {
		return nil, fmt.Errorf("get scopes by keys: %w", err)
	}
	return scanScopes(rows)
}

func scanScopes(rows pgx.Rows) ([]*entity.Scope, error) {
	defer rows.Close()
	list := []*entity.Scope{}
	for rows.Next() {
		var s entity.Scope
		if err := rows.Scan(&s.ID, &s.Key, &s.Name, &s.Description, &s.Enabled); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return list, nil
}
