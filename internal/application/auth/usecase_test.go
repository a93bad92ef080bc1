package auth_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/auth"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
)

const strongPassword = "Abcdefghijk1"

type resetMailer struct {
	mu       sync.Mutex
	urls     []string
	names    []string
	failWith error
}

func (m *resetMailer) SendInvite(context.Context, string, string, string) error { return nil }

func (m *resetMailer) SendPasswordReset(_ context.Context, _, resetURL, firstName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.urls = append(m.urls, resetURL)
	m.names = append(m.names, firstName)
	return nil
}

type fixture struct {
	store  *memory.Store
	tokens *jwt.Service
	hasher *hasher.Bcrypt
	mailer *resetMailer
	uc     *auth.AuthUseCase
	admin  *entity.Administrator
	acme   *entity.Company
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	tokens, err := jwt.NewService(jwt.Config{Secret: strings.Repeat("s", 32), Issuer: "test"})
	require.NoError(t, err)
	f := &fixture{store: memory.NewStore(), tokens: tokens, hasher: hasher.NewBcrypt(bcrypt.MinCost), mailer: &resetMailer{}}

	hash, err := f.hasher.Hash(strongPassword)
	require.NoError(t, err)
	now := time.Now()
	f.admin = &entity.Administrator{Email: "ana@acme.io", Username: "ana", PasswordHash: hash, FirstName: "Ana", LastName: "Ruiz", RegisteredAt: &now}
	require.NoError(t, f.store.Administrators().Create(ctx, f.admin))
	f.acme = &entity.Company{Name: "Acme"}
	require.NoError(t, f.store.Companies().Create(ctx, f.acme))
	require.NoError(t, f.store.Memberships().Create(ctx, &entity.Membership{
		AdministratorID: f.admin.ID, CompanyID: f.acme.ID, Role: entity.RoleOwner, Enabled: true, Accepted: true,
	}))

	f.uc = auth.NewAuthUseCase(auth.Deps{
		Administrators:  f.store.Administrators(),
		Tx:              f.store,
		Guard:           access.NewGuard(f.store.Memberships()),
		Tokens:          tokens,
		Hasher:          f.hasher,
		Policy:          password.NewPolicy(),
		Mailer:          f.mailer,
		FrontendBaseURL: "https://app.example.com",
	})
	return f
}

func TestLogin_PorUsernameYPorEmail(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"ana", "ana@acme.io"} {
		res, err := f.uc.Login(context.Background(), dto.LoginRequest{Username: id, Password: strongPassword})
		require.NoError(t, err, id)
		assert.Equal(t, "Bearer", res.TokenType)
		assert.Equal(t, int64(900), res.ExpiresIn)
		assert.Equal(t, []int64{f.acme.ID}, res.CompanyIDs)
		assert.Equal(t, "ana", res.Administrator.Username)

		claims, err := f.tokens.VerifyAccess(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, f.admin.ID, claims.AdministratorID)
		assert.Equal(t, []string{"OWNER"}, claims.Roles)

		sub, err := f.tokens.VerifyRefresh(res.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, f.admin.ID, sub)
	}
}

func TestLogin_CredencialesInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: "otraClave1234"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, auth.IsBadCredentials(err))

	_, err = f.uc.Login(ctx, dto.LoginRequest{Username: "nadie", Password: strongPassword})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, auth.IsBadCredentials(err), "usuario inexistente y contraseña incorrecta dan el mismo error")
}

func TestLogin_NoRegistrado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hash, err := f.hasher.Hash(strongPassword)
	require.NoError(t, err)
	require.NoError(t, f.store.Administrators().Create(ctx, &entity.Administrator{Email: "p@acme.io", Username: "pendiente", PasswordHash: hash}))

	_, err = f.uc.Login(ctx, dto.LoginRequest{Username: "pendiente", Password: strongPassword})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRefresh_RederivaEmpresas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: strongPassword})
	require.NoError(t, err)

	globex := &entity.Company{Name: "Globex"}
	require.NoError(t, f.store.Companies().Create(ctx, globex))
	require.NoError(t, f.store.Memberships().Create(ctx, &entity.Membership{
		AdministratorID: f.admin.ID, CompanyID: globex.ID, Role: entity.RoleAdministrator, Enabled: true, Accepted: true,
	}))

	res, err := f.uc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.acme.ID, globex.ID}, res.CompanyIDs)

	claims, err := f.tokens.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"OWNER", "ADMINISTRATOR"}, claims.Roles)
}

func TestRefresh_ConAccessToken_Rechazado(t *testing.T) {
	f := newFixture(t)
	login, err := f.uc.Login(context.Background(), dto.LoginRequest{Username: "ana", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.uc.Refresh(context.Background(), login.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestPasswordReset_FlujoCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.RequestPasswordReset(ctx, "ana@acme.io"))
	require.Len(t, f.mailer.urls, 1)
	assert.True(t, strings.HasPrefix(f.mailer.urls[0], "https://app.example.com/reset-password?token="))
	assert.Equal(t, "Ana", f.mailer.names[0])

	u, err := url.Parse(f.mailer.urls[0])
	require.NoError(t, err)
	token := u.Query().Get("token")

	err = f.uc.ResetPassword(ctx, token, "corta")
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	require.NoError(t, f.uc.ResetPassword(ctx, token, "NuevaClave2024"))

	_, err = f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: strongPassword})
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "la contraseña anterior ya no sirve")
	_, err = f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: "NuevaClave2024"})
	assert.NoError(t, err)
}

func TestRequestPasswordReset_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.uc.RequestPasswordReset(ctx, "nadie@acme.io")
	assert.ErrorIs(t, err, domain.ErrAdministratorNotFound)

	f.mailer.failWith = errors.New("smtp caído")
	err = f.uc.RequestPasswordReset(ctx, "ana@acme.io")
	assert.ErrorIs(t, err, domain.ErrMailDelivery)
}

func TestResetPassword_ConTokenDeInvitacion(t *testing.T) {
	f := newFixture(t)
	invite, err := f.tokens.IssueInvite(f.admin.ID, f.acme.ID, true)
	require.NoError(t, err)

	err = f.uc.ResetPassword(context.Background(), invite, "NuevaClave2024")
	assert.ErrorIs(t, err, domain.ErrTokenTypeMismatch)
}

func TestAuthenticate_Principal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: strongPassword})
	require.NoError(t, err)

	p, err := f.uc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, p.ID)
	assert.True(t, p.HasCompany(f.acme.ID))

	_, err = f.uc.Authenticate(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid, "un refresh token no sirve como access token")
}

// El conjunto de empresas se resuelve en cada autenticación: un vínculo
// deshabilitado deja de dar acceso aunque el token siga vigente.
func TestAuthenticate_VinculoDeshabilitado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.uc.Login(ctx, dto.LoginRequest{Username: "ana", Password: strongPassword})
	require.NoError(t, err)

	m, err := f.store.Memberships().Get(ctx, f.admin.ID, f.acme.ID)
	require.NoError(t, err)
	m.Enabled = false
	require.NoError(t, f.store.Memberships().Update(ctx, m))

	p, err := f.uc.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err, "el token sigue siendo válido")
	assert.False(t, p.HasCompany(f.acme.ID))
	assert.Error(t, access.RequireAccess(p, f.acme.ID))
}
