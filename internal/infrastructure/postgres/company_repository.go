package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador. Acepta pool o tx (Querier).
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// Create persiste una nueva empresa y asigna su ID.
func (r *CompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	query := `INSERT INTO companies (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.q.QueryRow(ctx, query, c.Name, c.CreatedAt).Scan(&c.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.Wrap(domain.KindConflict, "ya existe una empresa con ese nombre", err)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID.
func (r *CompanyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	return r.findOne(ctx, `SELECT id, name, created_at FROM companies WHERE id = $1`, id)
}

// GetByName obtiene una empresa por nombre exacto.
func (r *CompanyRepo) GetByName(ctx context.Context, name string) (*entity.Company, error) {
	return r.findOne(ctx, `SELECT id, name, created_at FROM companies WHERE name = $1`, name)
}

// ListByIDs lista las empresas indicadas ordenadas por ID.
func (r *CompanyRepo) ListByIDs(ctx context.Context, ids []int64) ([]*entity.Company, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, created_at FROM companies WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()
	var list []*entity.Company
	for rows.Next() {
		var c entity.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (r *CompanyRepo) findOne(ctx context.Context, query string, arg any) (*entity.Company, error) {
	var c entity.Company
	if err := r.q.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
