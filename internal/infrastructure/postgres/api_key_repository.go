package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.APIKeyRepository = (*APIKeyRepo)(nil)

// APIKeyRepo implementación del puerto APIKeyRepository sobre PostgreSQL. Los scopes
// viven en api_key_scopes; cada escritura los actualiza en la misma sentencia.
type APIKeyRepo struct {
	q Querier
}

// NewAPIKeyRepository construye el adaptador. Acepta pool o tx (Querier).
func NewAPIKeyRepository(q Querier) *APIKeyRepo {
	return &APIKeyRepo{q: q}
}

const apiKeySelect = `
	SELECT k.id, k.company_id, k.client_id, k.client_secret_hash, k.name, k.description, k.enabled,
	       k.created_at, k.updated_at,
	       COALESCE(array_agg(sc.key ORDER BY sc.key) FILTER (WHERE sc.key IS NOT NULL), '{}')::text[]
	FROM api_keys k
	LEFT JOIN api_key_scopes ks ON ks.api_key_id = k.id
	LEFT JOIN scopes sc ON sc.id = ks.scope_id`

// Create inserta la key y sus scopes habilitados.
func (r *APIKeyRepo) Create(ctx context.Context, k *entity.APIKey) error {
	query := `
		WITH k AS (
			INSERT INTO api_keys (company_id, client_id, client_secret_hash, name, description, enabled, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING id
		), s AS (
			INSERT INTO api_key_scopes (api_key_id, scope_id)
			SELECT k.id, sc.id FROM k, scopes sc WHERE sc.key = ANY($8::text[]) AND sc.enabled
		)
		SELECT id FROM k`
	err := r.q.QueryRow(ctx, query,
		k.CompanyID, k.ClientID, k.SecretHash, k.Name, k.Description, k.Enabled, k.CreatedAt, k.Scopes,
	).Scan(&k.ID)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return domain.Wrap(domain.KindNotFound, domain.ErrCompanyNotFound.Msg, err)
		case isUniqueViolation(err):
			return domain.Wrap(domain.KindConflict, "client_id ya registrado", err)
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	k.UpdatedAt = k.CreatedAt
	return nil
}

// GetByID obtiene una key de la empresa con sus scopes.
func (r *APIKeyRepo) GetByID(ctx context.Context, companyID, id int64) (*entity.APIKey, error) {
	rows, err := r.q.Query(ctx, apiKeySelect+` WHERE k.company_id = $1 AND k.id = $2 GROUP BY k.id`, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	list, err := scanAPIKeys(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListByCompany lista con paginación las keys de la empresa y devuelve el total.
func (r *APIKeyRepo) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.APIKey, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM api_keys WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count api keys: %w", err)
	}
	rows, err := r.q.Query(ctx, apiKeySelect+` WHERE k.company_id = $1 GROUP BY k.id ORDER BY k.id LIMIT $2 OFFSET $3`,
		companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list api keys: %w", err)
	}
	list, err := scanAPIKeys(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update reemplaza los datos editables y deja exactamente los scopes pedidos.
func (r *APIKeyRepo) Update(ctx context.Context, k *entity.APIKey) error {
	query := `
		WITH u AS (
			UPDATE api_keys SET name = $3, description = $4, enabled = $5, updated_at = $6
			WHERE id = $1 AND company_id = $2
			RETURNING id
		), wanted AS (
			SELECT id FROM scopes WHERE key = ANY($7::text[]) AND enabled
		), d AS (
			DELETE FROM api_key_scopes ks USING u
			WHERE ks.api_key_id = u.id AND ks.scope_id NOT IN (SELECT id FROM wanted)
		), i AS (
			INSERT INTO api_key_scopes (api_key_id, scope_id)
			SELECT u.id, wanted.id FROM u, wanted
			ON CONFLICT DO NOTHING
		)
		SELECT id FROM u`
	var id int64
	err := r.q.QueryRow(ctx, query, k.ID, k.CompanyID, k.Name, k.Description, k.Enabled, k.UpdatedAt, k.Scopes).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrAPIKeyNotFound
		}
		return fmt.Errorf("update api key: %w", err)
	}
	return nil
}

// DeleteMany borra las keys de la empresa; las de otras empresas se ignoran.
func (r *APIKeyRepo) DeleteMany(ctx context.Context, companyID int64, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM api_keys WHERE company_id = $1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return 0, fmt.Errorf("delete api keys: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanAPIKeys(rows pgx.Rows) ([]*entity.APIKey, error) {
	defer rows.Close()
	list := []*entity.APIKey{}
	for rows.Next() {
		var k entity.APIKey
		if err := rows.Scan(
			&k.ID, &k.CompanyID, &k.ClientID, &k.SecretHash, &k.Name, &k.Description, &k.Enabled,
			&k.CreatedAt, &k.UpdatedAt, &k.Scopes,
		); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		list = append(list, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return list, nil
}
