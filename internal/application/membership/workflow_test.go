package membership_test

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

	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
)

const strongPassword = "Abcdefghijk1"

// fakeMailer guarda los correos enviados; si failWith no es nil, falla.
type fakeMailer struct {
	mu       sync.Mutex
	invites  []sentMail
	resets   []sentMail
	failWith error
}

type sentMail struct {
	To, Company, URL, FirstName string
}

func (f *fakeMailer) SendInvite(_ context.Context, to, companyName, inviteURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.invites = append(f.invites, sentMail{To: to, Company: companyName, URL: inviteURL})
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, resetURL, firstName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.resets = append(f.resets, sentMail{To: to, URL: resetURL, FirstName: firstName})
	return nil
}

func (f *fakeMailer) lastInviteToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.invites, "no se envió ninguna invitación")
	u, err := url.Parse(f.invites[len(f.invites)-1].URL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type fixture struct {
	store  *memory.Store
	tokens *jwt.Service
	mailer *fakeMailer
	wf     *membership.Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := jwt.NewService(jwt.Config{Secret: strings.Repeat("k", 32), Issuer: "test"})
	require.NoError(t, err)
	f := &fixture{store: memory.NewStore(), tokens: tokens, mailer: &fakeMailer{}}
	f.wf = membership.NewWorkflow(membership.Deps{
		Tx:              f.store,
		Tokens:          tokens,
		Mailer:          f.mailer,
		Hasher:          hasher.NewBcrypt(bcrypt.MinCost),
		Policy:          password.NewPolicy(),
		FrontendBaseURL: "https://app.example.com/",
	})
	return f
}

func (f *fixture) company(t *testing.T, name string) *entity.Company {
	t.Helper()
	c := &entity.Company{Name: name, CreatedAt: time.Now()}
	require.NoError(t, f.store.Companies().Create(context.Background(), c))
	return c
}

// owner crea un administrador registrado con vínculo activo OWNER en la empresa.
func (f *fixture) owner(t *testing.T, username string, companyID int64) *entity.Administrator {
	t.Helper()
	ctx := context.Background()
	a := &entity.Administrator{Email: username + "@example.com", Username: username, PasswordHash: "x", FirstName: "F", LastName: "L"}
	require.NoError(t, f.store.Administrators().Create(ctx, a))
	_, err := f.wf.AddAdministratorToCompany(ctx, a.ID, companyID, entity.RoleOwner)
	require.NoError(t, err)
	return a
}

func (f *fixture) activeCount(t *testing.T) int {
	t.Helper()
	n, err := f.store.Memberships().CountActive(context.Background())
	require.NoError(t, err)
	return n
}

// ─── Invite ──────────────────────────────────────────────────────────────────

func TestInvite_CreaPlaceholderYEnviaEnlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")

	res, err := f.wf.Invite(ctx, membership.InviteInput{Email: "nuevo@example.com", CompanyID: c.ID, Role: "administrator"})
	require.NoError(t, err)
	assert.Equal(t, "ADMINISTRATOR", res.Role)
	assert.True(t, res.Enabled)
	assert.False(t, res.Accepted)
	assert.False(t, res.Registered)
	assert.Empty(t, res.Username, "el username de relleno no se expone")

	admin, err := f.store.Administrators().GetByEmail(ctx, "nuevo@example.com")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.False(t, admin.Registered())
	assert.Equal(t, entity.PlaceholderFirstName, admin.FirstName)
	assert.Len(t, admin.Username, 36, "username UUID")
	assert.NotEmpty(t, admin.PasswordHash)

	require.Len(t, f.mailer.invites, 1)
	mail := f.mailer.invites[0]
	assert.Equal(t, "nuevo@example.com", mail.To)
	assert.Equal(t, "Acme", mail.Company)
	assert.True(t, strings.HasPrefix(mail.URL, "https://app.example.com/accept-invite?token="))

	claims, err := f.tokens.VerifyInvite(f.mailer.lastInviteToken(t))
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdministratorID)
	assert.Equal(t, c.ID, claims.CompanyID)
	assert.False(t, claims.Registered)
}

func TestInvite_DosVeces_AlreadyLinked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	in := membership.InviteInput{Email: "dup@example.com", CompanyID: c.ID, Role: "OWNER"}

	_, err := f.wf.Invite(ctx, in)
	require.NoError(t, err)
	_, err = f.wf.Invite(ctx, in)
	assert.ErrorIs(t, err, domain.ErrAlreadyLinked)
	assert.Len(t, f.mailer.invites, 1, "la segunda invitación no envía correo")
}

func TestInvite_AdministradorRegistradoExistente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.company(t, "Acme")
	b := f.company(t, "Globex")
	ana := f.owner(t, "ana", a.ID)

	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: ana.Email, CompanyID: b.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)

	claims, err := f.tokens.VerifyInvite(f.mailer.lastInviteToken(t))
	require.NoError(t, err)
	assert.Equal(t, ana.ID, claims.AdministratorID)
	assert.True(t, claims.Registered)
}

func TestInvite_Errores(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "Acme")

	_, err := f.wf.Invite(context.Background(), membership.InviteInput{Email: "x@example.com", CompanyID: c.ID, Role: "SUPERUSER"})
	assert.ErrorIs(t, err, domain.ErrRoleInvalid)

	_, err = f.wf.Invite(context.Background(), membership.InviteInput{Email: "x@example.com", CompanyID: 999, Role: "OWNER"})
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	_, err = f.wf.Invite(context.Background(), membership.InviteInput{Email: "no-es-email", CompanyID: c.ID, Role: "OWNER"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.mailer.invites)
}

func TestInvite_FalloDeCorreo_Revierte(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	f.mailer.failWith = errors.New("smtp: connection refused")

	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "nadie@example.com", CompanyID: c.ID, Role: "OWNER"})
	assert.ErrorIs(t, err, domain.ErrMailDelivery)

	admin, err := f.store.Administrators().GetByEmail(ctx, "nadie@example.com")
	require.NoError(t, err)
	assert.Nil(t, admin, "el administrador de relleno no debe persistir")
}

// ─── AcceptInvite ────────────────────────────────────────────────────────────

func TestAcceptInvite_NoRegistrado_InvalidState(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "Acme")
	_, err := f.wf.Invite(context.Background(), membership.InviteInput{Email: "p@example.com", CompanyID: c.ID, Role: "OWNER"})
	require.NoError(t, err)

	_, err = f.wf.AcceptInvite(context.Background(), f.mailer.lastInviteToken(t))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// AcceptInvite fuerza enabled=true aunque el vínculo pendiente se haya deshabilitado.
func TestAcceptInvite_FuerzaEnabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.company(t, "Acme")
	b := f.company(t, "Globex")
	ana := f.owner(t, "ana", a.ID)

	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: ana.Email, CompanyID: b.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)
	token := f.mailer.lastInviteToken(t)

	_, err = f.wf.UpdateMembership(ctx, membership.UpdateInput{AdministratorID: ana.ID, CompanyID: b.ID, Enabled: false})
	require.NoError(t, err)

	res, err := f.wf.AcceptInvite(ctx, token)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Enabled, "aceptar la invitación también habilita el vínculo")
	assert.Equal(t, 2, f.activeCount(t))
}

func TestAcceptInvite_TokenDeReset_Rechazado(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "Acme")
	ana := f.owner(t, "ana", c.ID)
	reset, err := f.tokens.IssuePasswordReset(ana.ID)
	require.NoError(t, err)

	_, err = f.wf.AcceptInvite(context.Background(), reset)
	assert.ErrorIs(t, err, domain.ErrTokenTypeMismatch)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestAcceptInvite_VinculoEliminado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.company(t, "Acme")
	b := f.company(t, "Globex")
	ana := f.owner(t, "ana", a.ID)
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: ana.Email, CompanyID: b.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)
	token := f.mailer.lastInviteToken(t)

	_, err = f.wf.DeleteMemberships(ctx, []int64{ana.ID}, b.ID)
	require.NoError(t, err)

	_, err = f.wf.AcceptInvite(ctx, token)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

// ─── RegisterAndAccept ───────────────────────────────────────────────────────

func TestRegisterAndAccept_CompletaRegistro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "bea@example.com", CompanyID: c.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)

	res, err := f.wf.RegisterAndAccept(ctx, membership.RegisterInput{
		Token: f.mailer.lastInviteToken(t), Username: "bea", Password: strongPassword, FirstName: "Bea", LastName: "Sol",
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Enabled)
	assert.True(t, res.Registered)
	assert.Equal(t, "bea", res.Username)

	admin, err := f.store.Administrators().GetByUsername(ctx, "bea")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.Registered())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(strongPassword)))
	assert.Equal(t, 1, f.activeCount(t))
}

func TestRegisterAndAccept_PasswordDebil(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "Acme")
	_, err := f.wf.Invite(context.Background(), membership.InviteInput{Email: "bea@example.com", CompanyID: c.ID, Role: "OWNER"})
	require.NoError(t, err)

	_, err = f.wf.RegisterAndAccept(context.Background(), membership.RegisterInput{
		Token: f.mailer.lastInviteToken(t), Username: "bea", Password: "short1A", FirstName: "Bea", LastName: "Sol",
	})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	assert.Equal(t, 0, f.activeCount(t))
}

func TestRegisterAndAccept_YaRegistrado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "bea@example.com", CompanyID: c.ID, Role: "OWNER"})
	require.NoError(t, err)
	in := membership.RegisterInput{Token: f.mailer.lastInviteToken(t), Username: "bea", Password: strongPassword, FirstName: "Bea", LastName: "Sol"}

	_, err = f.wf.RegisterAndAccept(ctx, in)
	require.NoError(t, err)
	_, err = f.wf.RegisterAndAccept(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// Invitado a dos empresas antes de registrarse: tras registrarse con la primera
// invitación, la segunda (emitida con registered=false) se acepta con AcceptInvite.
func TestRegisterAndAccept_SegundaInvitacionPendiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.company(t, "Acme")
	b := f.company(t, "Globex")
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "bea@example.com", CompanyID: a.ID, Role: "OWNER"})
	require.NoError(t, err)
	first := f.mailer.lastInviteToken(t)
	_, err = f.wf.Invite(ctx, membership.InviteInput{Email: "bea@example.com", CompanyID: b.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)
	second := f.mailer.lastInviteToken(t)

	_, err = f.wf.RegisterAndAccept(ctx, membership.RegisterInput{Token: first, Username: "bea", Password: strongPassword, FirstName: "Bea", LastName: "Sol"})
	require.NoError(t, err)

	claims, err := f.tokens.VerifyInvite(second)
	require.NoError(t, err)
	assert.False(t, claims.Registered)

	_, err = f.wf.RegisterAndAccept(ctx, membership.RegisterInput{Token: second, Username: "bea2", Password: strongPassword, FirstName: "Bea", LastName: "Sol"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	res, err := f.wf.AcceptInvite(ctx, second)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "bea", res.Username)
	assert.Equal(t, 2, f.activeCount(t))
}

func TestRegisterAndAccept_UsernameOcupado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	f.owner(t, "ana", c.ID)
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "bea@example.com", CompanyID: c.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)

	_, err = f.wf.RegisterAndAccept(ctx, membership.RegisterInput{
		Token: f.mailer.lastInviteToken(t), Username: "ana", Password: strongPassword, FirstName: "Bea", LastName: "Sol",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// ─── UpdateMembership / DeleteMemberships ────────────────────────────────────

func TestUpdateMembership_UltimoActivo_HastaQueHayOtro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	a1 := f.owner(t, "a1", c.ID)
	disable := membership.UpdateInput{AdministratorID: a1.ID, CompanyID: c.ID, Enabled: false}

	_, err := f.wf.UpdateMembership(ctx, disable)
	assert.ErrorIs(t, err, domain.ErrLastActiveAdmin)
	assert.Equal(t, 1, f.activeCount(t), "el rechazo no modifica el estado")

	_, err = f.wf.Invite(ctx, membership.InviteInput{Email: "a2@example.com", CompanyID: c.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)
	_, err = f.wf.RegisterAndAccept(ctx, membership.RegisterInput{
		Token: f.mailer.lastInviteToken(t), Username: "a2", Password: strongPassword, FirstName: "A", LastName: "Dos",
	})
	require.NoError(t, err)

	res, err := f.wf.UpdateMembership(ctx, disable)
	require.NoError(t, err)
	assert.False(t, res.Enabled)
	assert.Equal(t, 1, f.activeCount(t))
}

// El conteo es de todo el sistema: una empresa puede quedar sin administradores
// activos si otra empresa conserva alguno.
func TestUpdateMembership_ConteoGlobal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.company(t, "X")
	y := f.company(t, "Y")
	ax := f.owner(t, "ax", x.ID)
	f.owner(t, "ay", y.ID)

	_, err := f.wf.UpdateMembership(ctx, membership.UpdateInput{AdministratorID: ax.ID, CompanyID: x.ID, Enabled: false})
	require.NoError(t, err, "Y conserva un activo, así que X puede quedar en cero")
	assert.Equal(t, 1, f.activeCount(t))
}

func TestUpdateMembership_CambiaRol(t *testing.T) {
	f := newFixture(t)
	c := f.company(t, "Acme")
	a := f.owner(t, "ana", c.ID)

	res, err := f.wf.UpdateMembership(context.Background(), membership.UpdateInput{AdministratorID: a.ID, CompanyID: c.ID, Enabled: true, Role: "administrator"})
	require.NoError(t, err)
	assert.Equal(t, "ADMINISTRATOR", res.Role)

	_, err = f.wf.UpdateMembership(context.Background(), membership.UpdateInput{AdministratorID: a.ID, CompanyID: c.ID, Enabled: true, Role: "root"})
	assert.ErrorIs(t, err, domain.ErrRoleInvalid)

	_, err = f.wf.UpdateMembership(context.Background(), membership.UpdateInput{AdministratorID: 99, CompanyID: c.ID, Enabled: true})
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

func TestDeleteMemberships(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	a1 := f.owner(t, "a1", c.ID)
	a2 := f.owner(t, "a2", c.ID)

	_, err := f.wf.DeleteMemberships(ctx, []int64{a1.ID, a2.ID}, c.ID)
	assert.ErrorIs(t, err, domain.ErrLastActiveAdmin)
	assert.Equal(t, 2, f.activeCount(t), "rechazo sin borrado parcial")

	n, err := f.wf.DeleteMemberships(ctx, []int64{a2.ID, a2.ID}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.activeCount(t))

	_, err = f.wf.DeleteMemberships(ctx, []int64{a1.ID}, c.ID)
	assert.ErrorIs(t, err, domain.ErrLastActiveAdmin)

	_, err = f.wf.DeleteMemberships(ctx, []int64{a2.ID}, c.ID)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

func TestDeleteMemberships_PendienteNoCuenta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	f.owner(t, "a1", c.ID)
	_, err := f.wf.Invite(ctx, membership.InviteInput{Email: "p@example.com", CompanyID: c.ID, Role: "ADMINISTRATOR"})
	require.NoError(t, err)
	pending, err := f.store.Administrators().GetByEmail(ctx, "p@example.com")
	require.NoError(t, err)

	n, err := f.wf.DeleteMemberships(ctx, []int64{pending.ID}, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.activeCount(t))
}

// Dos deshabilitaciones simultáneas sobre los dos últimos activos: como mucho una gana.
func TestUpdateMembership_Concurrente(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		c := f.company(t, "Acme")
		a1 := f.owner(t, "a1", c.ID)
		a2 := f.owner(t, "a2", c.ID)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, id := range []int64{a1.ID, a2.ID} {
			wg.Add(1)
			go func(j int, id int64) {
				defer wg.Done()
				_, errs[j] = f.wf.UpdateMembership(context.Background(), membership.UpdateInput{AdministratorID: id, CompanyID: c.ID, Enabled: false})
			}(j, id)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, domain.ErrLastActiveAdmin)
			}
		}
		assert.Equal(t, 1, ok, "exactamente una deshabilitación debe ganar")
		assert.Equal(t, 1, f.activeCount(t))
	}
}

// ─── AddAdministratorToCompany ───────────────────────────────────────────────

func TestAddAdministratorToCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme")
	a := &entity.Administrator{Email: "seed@example.com", Username: "seed", PasswordHash: "x", FirstName: "S", LastName: "D"}
	require.NoError(t, f.store.Administrators().Create(ctx, a))

	res, err := f.wf.AddAdministratorToCompany(ctx, a.ID, c.ID, entity.RoleOwner)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.True(t, res.Enabled)
	assert.True(t, res.Registered)

	_, err = f.wf.AddAdministratorToCompany(ctx, a.ID, c.ID, entity.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrAlreadyLinked)

	_, err = f.wf.AddAdministratorToCompany(ctx, a.ID, 404, entity.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)
}
