package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
)

func setup(t *testing.T) (*memory.Store, *usecase.CompanyUseCase, *usecase.AdministratorUseCase, *access.Guard, *entity.Administrator) {
	t.Helper()
	st := memory.NewStore()
	tokens, err := jwt.NewService(jwt.Config{Secret: strings.Repeat("c", 32)})
	require.NoError(t, err)
	wf := membership.NewWorkflow(membership.Deps{
		Tx: st, Tokens: tokens, Hasher: hasher.NewBcrypt(bcrypt.MinCost), Policy: password.NewPolicy(),
	})
	now := time.Now()
	admin := &entity.Administrator{Email: "ana@acme.io", Username: "ana", PasswordHash: "x", FirstName: "Ana", LastName: "Ruiz", RegisteredAt: &now}
	require.NoError(t, st.Administrators().Create(context.Background(), admin))
	return st,
		usecase.NewCompanyUseCase(st.Companies(), st, wf),
		usecase.NewAdministratorUseCase(st.Memberships()),
		access.NewGuard(st.Memberships()),
		admin
}

func TestCompanyCreate_CreadorEsOwner(t *testing.T) {
	st, companies, _, guard, admin := setup(t)
	ctx := context.Background()
	p, err := guard.Authenticate(ctx, admin)
	require.NoError(t, err)

	res, err := companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "  Acme  "})
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.Name)

	m, err := st.Memberships().Get(ctx, admin.ID, res.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, entity.RoleOwner, m.Role)
	assert.True(t, m.Active())

	_, err = companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "Acme"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = companies.Create(ctx, p, dto.CreateCompanyRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompanyListForPrincipal(t *testing.T) {
	_, companies, _, guard, admin := setup(t)
	ctx := context.Background()
	p, err := guard.Authenticate(ctx, admin)
	require.NoError(t, err)

	empty, err := companies.ListForPrincipal(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	_, err = companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "Acme"})
	require.NoError(t, err)
	_, err = companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "Globex"})
	require.NoError(t, err)

	p, err = guard.Authenticate(ctx, admin)
	require.NoError(t, err)
	list, err := companies.ListForPrincipal(ctx, p)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Acme", list.Items[0].Name)
	assert.Equal(t, "Globex", list.Items[1].Name)
}

func TestAdministratorListByCompany(t *testing.T) {
	st, companies, admins, guard, admin := setup(t)
	ctx := context.Background()
	p, err := guard.Authenticate(ctx, admin)
	require.NoError(t, err)
	acme, err := companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "Acme"})
	require.NoError(t, err)

	for i, email := range []string{"b@acme.io", "c@acme.io"} {
		a := &entity.Administrator{Email: email, Username: email}
		require.NoError(t, st.Administrators().Create(ctx, a))
		require.NoError(t, st.Memberships().Create(ctx, &entity.Membership{
			AdministratorID: a.ID, CompanyID: acme.ID, Role: entity.RoleAdministrator, Enabled: true, Accepted: i == 0,
		}))
	}

	_, err = admins.ListByCompany(ctx, p, acme.ID, dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden, "el principal anterior al alta no ve la empresa nueva")

	p, err = guard.Authenticate(ctx, admin)
	require.NoError(t, err)
	res, err := admins.ListByCompany(ctx, p, acme.ID, dto.PageRequest{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Page.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "ana", res.Items[0].Username)
	assert.Equal(t, "OWNER", res.Items[0].Role)
	assert.Empty(t, res.Items[1].Username, "no registrado: sin username")

	res, err = admins.ListByCompany(ctx, p, acme.ID, dto.PageRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "c@acme.io", res.Items[0].Email)
	assert.False(t, res.Items[0].Accepted)
}

func TestCompanyGetByID(t *testing.T) {
	_, companies, _, guard, admin := setup(t)
	ctx := context.Background()
	p, err := guard.Authenticate(ctx, admin)
	require.NoError(t, err)
	acme, err := companies.Create(ctx, p, dto.CreateCompanyRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = companies.GetByID(ctx, p, acme.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	p, err = guard.Authenticate(ctx, admin)
	require.NoError(t, err)
	got, err := companies.GetByID(ctx, p, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
}
