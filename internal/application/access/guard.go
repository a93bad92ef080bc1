// Package access resuelve el principal autenticado y controla el acceso por empresa.
package access

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

// Principal administrador autenticado con el conjunto de empresas en las que tiene
// un vínculo activo. Se construye por petición y no se comparte.
type Principal struct {
	ID         int64
	Username   string
	Email      string
	Name       string
	Roles      []string
	CompanyIDs []int64
	companies  map[int64]struct{}
}

// HasCompany informa si el principal tiene un vínculo activo con la empresa.
func (p *Principal) HasCompany(companyID int64) bool {
	if p == nil {
		return false
	}
	_, ok := p.companies[companyID]
	return ok
}

// NewPrincipal arma un principal a partir de sus datos ya resueltos.
func NewPrincipal(id int64, username, email, name string, roles []string, companyIDs []int64) *Principal {
	p := &Principal{
		ID:         id,
		Username:   username,
		Email:      email,
		Name:       name,
		Roles:      roles,
		CompanyIDs: companyIDs,
		companies:  make(map[int64]struct{}, len(companyIDs)),
	}
	for _, id := range companyIDs {
		p.companies[id] = struct{}{}
	}
	return p
}

// Guard deriva el principal desde los vínculos activos.
type Guard struct {
	memberships repository.MembershipRepository
}

// NewGuard construye el guard sobre el repositorio de vínculos.
func NewGuard(memberships repository.MembershipRepository) *Guard {
	return &Guard{memberships: memberships}
}

// Authenticate construye el principal: CompanyIDs y Roles salen de los vínculos
// habilitados y aceptados del administrador.
func (g *Guard) Authenticate(ctx context.Context, admin *entity.Administrator) (*Principal, error) {
	if admin == nil {
		return nil, domain.ErrUnauthorized
	}
	active, err := g.memberships.ListActiveByAdministrator(ctx, admin.ID)
	if err != nil {
		return nil, fmt.Errorf("list active memberships: %w", err)
	}
	ids := make([]int64, 0, len(active))
	seen := map[entity.Role]bool{}
	roles := []string{}
	for _, m := range active {
		ids = append(ids, m.CompanyID)
		if !seen[m.Role] {
			seen[m.Role] = true
			roles = append(roles, string(m.Role))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	sort.Strings(roles)
	return NewPrincipal(admin.ID, admin.Username, admin.Email, admin.FullName(), roles, ids), nil
}

// RequireAccess devuelve Forbidden si el principal no tiene vínculo activo con la empresa.
func RequireAccess(p *Principal, companyID int64) error {
	if !p.HasCompany(companyID) {
		return domain.Errorf(domain.KindForbidden, "sin acceso a la empresa %d", companyID)
	}
	return nil
}
