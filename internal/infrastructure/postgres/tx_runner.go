package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// membershipLockKey clave del advisory lock que serializa las mutaciones de vínculos.
const membershipLockKey int64 = 0x61636c_6d656d // "acl" "mem"

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, toma el advisory lock de vínculos (se libera con el
// Commit o Rollback), ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Con el lock, CountActive y la escritura posterior no se intercalan con otra tx.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, membershipLockKey); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	if err := fn(ctx, Repositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repositories construye los tres repositorios sobre q (pool o tx).
func Repositories(q Querier) repository.Repositories {
	return repository.Repositories{
		Administrators: NewAdministratorRepository(q),
		Companies:      NewCompanyRepository(q),
		Memberships:    NewMembershipRepository(q),
	}
}
