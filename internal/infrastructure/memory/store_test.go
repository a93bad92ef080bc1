package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
)

func TestRun_RollbackSiFnFalla(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Companies.Create(ctx, &entity.Company{Name: "Acme"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := st.Companies().GetByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Nil(t, c, "la escritura no se publica")

	err = st.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return repos.Companies.Create(ctx, &entity.Company{Name: "Acme"})
	})
	require.NoError(t, err)
	c, err = st.Companies().GetByName(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestRun_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := memory.NewStore().Run(ctx, func(context.Context, repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAdministrators_Conflictos(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, st.Administrators().Create(ctx, &entity.Administrator{Email: "ana@acme.io", Username: "ana"}))

	err := st.Administrators().Create(ctx, &entity.Administrator{Email: "ANA@acme.io", Username: "otra"})
	assert.ErrorIs(t, err, domain.ErrConflict, "el email no distingue mayúsculas")

	err = st.Administrators().Create(ctx, &entity.Administrator{Email: "otra@acme.io", Username: "ana"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	a, err := st.Administrators().GetByUsernameOrEmail(ctx, "ana@acme.io")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "ana", a.Username)
}

// Si el username de uno coincide con el email de otro, gana el username.
func TestAdministrators_UsernameAntesQueEmail(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	porUsername := &entity.Administrator{Email: "bea@acme.io", Username: "ana@acme.io"}
	require.NoError(t, st.Administrators().Create(ctx, porUsername))
	porEmail := &entity.Administrator{Email: "ana@acme.io", Username: "ana"}
	require.NoError(t, st.Administrators().Create(ctx, porEmail))

	for i := 0; i < 20; i++ {
		a, err := st.Administrators().GetByUsernameOrEmail(ctx, "ana@acme.io")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, porUsername.ID, a.ID)
	}

	a, err := st.Administrators().GetByUsernameOrEmail(ctx, "BEA@acme.io")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, porUsername.ID, a.ID, "sin username coincidente se busca por email")
}

func TestMemberships_ErroresYConteo(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	a := &entity.Administrator{Email: "ana@acme.io", Username: "ana"}
	require.NoError(t, st.Administrators().Create(ctx, a))
	c := &entity.Company{Name: "Acme"}
	require.NoError(t, st.Companies().Create(ctx, c))

	err := st.Memberships().Create(ctx, &entity.Membership{AdministratorID: a.ID, CompanyID: 99, Role: entity.RoleOwner})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
	err = st.Memberships().Create(ctx, &entity.Membership{AdministratorID: 99, CompanyID: c.ID, Role: entity.RoleOwner})
	assert.ErrorIs(t, err, domain.ErrAdministratorNotFound)

	m := &entity.Membership{AdministratorID: a.ID, CompanyID: c.ID, Role: entity.RoleOwner, Enabled: true}
	require.NoError(t, st.Memberships().Create(ctx, m))
	assert.ErrorIs(t, st.Memberships().Create(ctx, m), domain.ErrAlreadyLinked)

	n, err := st.Memberships().CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "sin aceptar no cuenta como activo")

	m.Accepted = true
	require.NoError(t, st.Memberships().Update(ctx, m))
	n, err = st.Memberships().CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, st.Memberships().DeleteMany(ctx, []entity.MembershipKey{m.Key()}))
	got, err := st.Memberships().Get(ctx, a.ID, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAPIKeys_PorEmpresa(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()
	acme := &entity.Company{Name: "Acme"}
	require.NoError(t, st.Companies().Create(ctx, acme))

	err := st.APIKeys().Create(ctx, &entity.APIKey{CompanyID: 99, ClientID: "c0", Name: "x"})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	for i := 1; i <= 3; i++ {
		k := &entity.APIKey{CompanyID: acme.ID, ClientID: fmt.Sprintf("c%d", i), Name: "k", Scopes: []string{"fishery-activity"}}
		require.NoError(t, st.APIKeys().Create(ctx, k))
		assert.Equal(t, int64(i), k.ID)
	}
	err = st.APIKeys().Create(ctx, &entity.APIKey{CompanyID: acme.ID, ClientID: "c1", Name: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	page, total, err := st.APIKeys().ListByCompany(ctx, acme.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "c3", page[0].ClientID)

	// Las copias devueltas no comparten los scopes con el store.
	page[0].Scopes[0] = "mutado"
	got, err := st.APIKeys().GetByID(ctx, acme.ID, page[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fishery-activity"}, got.Scopes)

	got, err = st.APIKeys().GetByID(ctx, acme.ID+1, page[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got, "otra empresa no la ve")

	n, err := st.APIKeys().DeleteMany(ctx, acme.ID, []int64{1, 2, 42})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, st.APIKeys().Update(ctx, &entity.APIKey{ID: 1, CompanyID: acme.ID}), domain.ErrAPIKeyNotFound)
}

func TestScopes_CatalogoPorDefecto(t *testing.T) {
	st := memory.NewStore()
	ctx := context.Background()

	list, err := st.Scopes().ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(entity.DefaultScopes()))

	found, err := st.Scopes().GetEnabledByKeys(ctx, []string{"fishing-facility", "desconocido"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "fishing-facility", found[0].Key)
}
