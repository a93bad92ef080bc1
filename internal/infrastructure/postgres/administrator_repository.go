package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.AdministratorRepository = (*AdministratorRepo)(nil)

const administratorColumns = `id, email, username, password_hash, first_name, last_name, registered_at, created_at, updated_at`

// AdministratorRepo implementación del puerto AdministratorRepository sobre PostgreSQL.
type AdministratorRepo struct {
	q Querier
}

// NewAdministratorRepository construye el adaptador. Acepta pool o tx (Querier).
func NewAdministratorRepository(q Querier) *AdministratorRepo {
	return &AdministratorRepo{q: q}
}

// Create persiste un nuevo administrador y asigna su ID.
func (r *AdministratorRepo) Create(ctx context.Context, a *entity.Administrator) error {
	query := `
		INSERT INTO administrators (email, username, password_hash, first_name, last_name, registered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		a.Email, a.Username, a.PasswordHash, a.FirstName, a.LastName, a.RegisteredAt,
		a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Wrap(domain.KindConflict, "email o username ya registrado", err)
		}
		return fmt.Errorf("insert administrator: %w", err)
	}
	return nil
}

// GetByID obtiene un administrador por ID.
func (r *AdministratorRepo) GetByID(ctx context.Context, id int64) (*entity.Administrator, error) {
	return r.findOne(ctx, "get administrator by id",
		`SELECT `+administratorColumns+` FROM administrators WHERE id = $1`, id)
}

// GetByEmail obtiene un administrador por email, sin distinguir mayúsculas.
func (r *AdministratorRepo) GetByEmail(ctx context.Context, email string) (*entity.Administrator, error) {
	return r.findOne(ctx, "get administrator by email",
		`SELECT `+administratorColumns+` FROM administrators WHERE lower(email) = lower($1)`, email)
}

// GetByUsername obtiene un administrador por username.
func (r *AdministratorRepo) GetByUsername(ctx context.Context, username string) (*entity.Administrator, error) {
	return r.findOne(ctx, "get administrator by username",
		`SELECT `+administratorColumns+` FROM administrators WHERE username = $1`, username)
}

// GetByUsernameOrEmail busca por username o email; prioriza el username.
func (r *AdministratorRepo) GetByUsernameOrEmail(ctx context.Context, identifier string) (*entity.Administrator, error) {
	return r.findOne(ctx, "get administrator by username or email",
		`SELECT `+administratorColumns+` FROM administrators
		 WHERE username = $1 OR lower(email) = lower($1)
		 ORDER BY (username = $1) DESC
		 LIMIT 1`, identifier)
}

// Update actualiza credenciales, nombres y registro.
func (r *AdministratorRepo) Update(ctx context.Context, a *entity.Administrator) error {
	query := `
		UPDATE administrators
		SET email = $2, username = $3, password_hash = $4, first_name = $5, last_name = $6,
		    registered_at = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		a.ID, a.Email, a.Username, a.PasswordHash, a.FirstName, a.LastName, a.RegisteredAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Wrap(domain.KindConflict, "email o username ya registrado", err)
		}
		return fmt.Errorf("update administrator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAdministratorNotFound
	}
	return nil
}

func (r *AdministratorRepo) findOne(ctx context.Context, op, query string, arg any) (*entity.Administrator, error) {
	var a entity.Administrator
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.FirstName, &a.LastName,
		&a.RegisteredAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}
