package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.MembershipRepository = (*MembershipRepo)(nil)

const membershipColumns = `administrator_id, company_id, role, enabled, accepted, created_at, updated_at`

// MembershipRepo implementación del puerto MembershipRepository sobre la tabla
// administrator_companies.
type MembershipRepo struct {
	q Querier
}

// NewMembershipRepository construye el adaptador. Acepta pool o tx (Querier).
func NewMembershipRepository(q Querier) *MembershipRepo {
	return &MembershipRepo{q: q}
}

// Create inserta el vínculo. AlreadyLinked si el par ya existe.
func (r *MembershipRepo) Create(ctx context.Context, m *entity.Membership) error {
	query := `
		INSERT INTO administrator_companies (` + membershipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		m.AdministratorID, m.CompanyID, string(m.Role), m.Enabled, m.Accepted, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrAlreadyLinked
		case isForeignKeyViolation(err) && constraintName(err) == "administrator_companies_company_id_fkey":
			return domain.ErrCompanyNotFound
		case isForeignKeyViolation(err):
			return domain.ErrAdministratorNotFound
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// Get obtiene el vínculo del par; (nil, nil) si no existe.
func (r *MembershipRepo) Get(ctx context.Context, administratorID, companyID int64) (*entity.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM administrator_companies
		WHERE administrator_id = $1 AND company_id = $2`
	m, err := scanMembership(r.q.QueryRow(ctx, query, administratorID, companyID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// Update actualiza rol, enabled y accepted.
func (r *MembershipRepo) Update(ctx context.Context, m *entity.Membership) error {
	query := `
		UPDATE administrator_companies
		SET role = $3, enabled = $4, accepted = $5, updated_at = $6
		WHERE administrator_id = $1 AND company_id = $2`
	tag, err := r.q.Exec(ctx, query, m.AdministratorID, m.CompanyID, string(m.Role), m.Enabled, m.Accepted, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// ListByAdministratorsAndCompany vínculos de la empresa con cualquiera de los administradores.
func (r *MembershipRepo) ListByAdministratorsAndCompany(ctx context.Context, administratorIDs []int64, companyID int64) ([]*entity.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM administrator_companies
		WHERE company_id = $1 AND administrator_id = ANY($2)
		ORDER BY administrator_id`
	return r.list(ctx, query, companyID, administratorIDs)
}

// ListActiveByAdministrator vínculos habilitados y aceptados del administrador.
func (r *MembershipRepo) ListActiveByAdministrator(ctx context.Context, administratorID int64) ([]*entity.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM administrator_companies
		WHERE administrator_id = $1 AND enabled AND accepted
		ORDER BY company_id`
	return r.list(ctx, query, administratorID)
}

// ListByCompany lista con paginación los vínculos de la empresa junto a los datos del
// administrador, y devuelve el total.
func (r *MembershipRepo) ListByCompany(ctx context.Context, companyID int64, limit, offset int) ([]*entity.MembershipView, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM administrator_companies WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count memberships: %w", err)
	}
	query := `
		SELECT ac.administrator_id, ac.company_id, ac.role, ac.enabled, ac.accepted, ac.created_at, ac.updated_at,
		       a.email, a.username, a.first_name, a.last_name, a.registered_at IS NOT NULL
		FROM administrator_companies ac
		JOIN administrators a ON a.id = ac.administrator_id
		WHERE ac.company_id = $1
		ORDER BY ac.administrator_id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list memberships by company: %w", err)
	}
	defer rows.Close()
	list := []*entity.MembershipView{}
	for rows.Next() {
		var v entity.MembershipView
		var role string
		if err := rows.Scan(
			&v.AdministratorID, &v.CompanyID, &role, &v.Enabled, &v.Accepted, &v.CreatedAt, &v.UpdatedAt,
			&v.Email, &v.Username, &v.FirstName, &v.LastName, &v.Registered,
		); err != nil {
			return nil, 0, fmt.Errorf("scan membership view: %w", err)
		}
		v.Role = entity.Role(role)
		list = append(list, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list memberships by company: %w", err)
	}
	return list, total, nil
}

// DeleteMany elimina los vínculos indicados en una sola sentencia.
func (r *MembershipRepo) DeleteMany(ctx context.Context, keys []entity.MembershipKey) error {
	if len(keys) == 0 {
		return nil
	}
	admins := make([]int64, len(keys))
	companies := make([]int64, len(keys))
	for i, k := range keys {
		admins[i] = k.AdministratorID
		companies[i] = k.CompanyID
	}
	query := `
		DELETE FROM administrator_companies ac
		USING unnest($1::bigint[], $2::bigint[]) AS k(administrator_id, company_id)
		WHERE ac.administrator_id = k.administrator_id AND ac.company_id = k.company_id`
	if _, err := r.q.Exec(ctx, query, admins, companies); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	return nil
}

// CountActive cuenta en todo el sistema los vínculos habilitados y aceptados.
func (r *MembershipRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM administrator_companies WHERE enabled AND accepted`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active memberships: %w", err)
	}
	return n, nil
}

func (r *MembershipRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Membership, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()
	var list []*entity.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMembership(row pgx.Row) (*entity.Membership, error) {
	var m entity.Membership
	var role string
	if err := row.Scan(&m.AdministratorID, &m.CompanyID, &role, &m.Enabled, &m.Accepted, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Role = entity.Role(role)
	return &m, nil
}
