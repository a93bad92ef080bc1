package repository

import "context"

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Administrators AdministratorRepository
	Companies      CompanyRepository
	Memberships    MembershipRepository
}

// TxRunner ejecuta fn dentro de una transacción y hace Commit si fn no devuelve error.
// Las implementaciones serializan las transacciones que mutan vínculos, de modo que el
// conteo de administradores activos y la escritura no puedan intercalarse.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
