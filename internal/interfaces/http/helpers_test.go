package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/auth"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/membership"
	"github.com/jhoicas/access-control-api/internal/application/usecase"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/access-control-api/internal/interfaces/http"
	"github.com/jhoicas/access-control-api/pkg/config"
	"github.com/jhoicas/access-control-api/pkg/hasher"
	"github.com/jhoicas/access-control-api/pkg/jwt"
	"github.com/jhoicas/access-control-api/pkg/logger"
	"github.com/jhoicas/access-control-api/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const strongPassword = "Abcdefghijk1"

// captureMailer guarda los enlaces enviados; failWith simula un SMTP caído.
type captureMailer struct {
	mu       sync.Mutex
	links    []string
	failWith error
}

func (m *captureMailer) SendInvite(_ context.Context, _, _, inviteURL string) error {
	return m.record(inviteURL)
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, resetURL, _ string) error {
	return m.record(resetURL)
}

func (m *captureMailer) record(link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.links = append(m.links, link)
	return nil
}

// lastToken devuelve el token del último enlace enviado.
func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links, "no se envió ningún correo")
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testEnv struct {
	app     *fiber.App
	store   *memory.Store
	tokens  *jwt.Service
	mailer  *captureMailer
	metrics *metrics.Metrics
	authUC  *auth.AuthUseCase
	owner   *entity.Administrator
	acme    *entity.Company
	globex  *entity.Company
}

// buildTestApp construye la aplicación Fiber completa sobre el store en memoria con:
//   - ana (OWNER de Acme, registrada)
//   - Globex, empresa sin vínculo con ana
func buildTestApp(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	env := &testEnv{store: memory.NewStore(), mailer: &captureMailer{}, metrics: metrics.New("acl")}

	var err error
	env.tokens, err = jwt.NewService(jwt.Config{Secret: strings.Repeat("h", 32), Issuer: "http-test"})
	require.NoError(t, err)
	bc := hasher.NewBcrypt(bcrypt.MinCost)
	policy := password.NewPolicy()
	log := logger.Nop()

	hash, err := bc.Hash(strongPassword)
	require.NoError(t, err)
	now := time.Now()
	env.owner = &entity.Administrator{Email: "ana@acme.io", Username: "ana", PasswordHash: hash, FirstName: "Ana", LastName: "Ruiz", RegisteredAt: &now}
	require.NoError(t, env.store.Administrators().Create(ctx, env.owner))
	env.acme = &entity.Company{Name: "Acme", CreatedAt: now}
	require.NoError(t, env.store.Companies().Create(ctx, env.acme))
	env.globex = &entity.Company{Name: "Globex", CreatedAt: now}
	require.NoError(t, env.store.Companies().Create(ctx, env.globex))
	require.NoError(t, env.store.Memberships().Create(ctx, &entity.Membership{
		AdministratorID: env.owner.ID, CompanyID: env.acme.ID, Role: entity.RoleOwner, Enabled: true, Accepted: true,
	}))

	guard := access.NewGuard(env.store.Memberships())
	wf := membership.NewWorkflow(membership.Deps{
		Tx: env.store, Tokens: env.tokens, Mailer: env.mailer, Hasher: bc, Policy: policy,
		Metrics: env.metrics, Logger: log, FrontendBaseURL: "https://app.example.com",
	})
	env.authUC = auth.NewAuthUseCase(auth.Deps{
		Administrators: env.store.Administrators(), Tx: env.store, Guard: guard, Tokens: env.tokens,
		Hasher: bc, Policy: policy, Mailer: env.mailer, Metrics: env.metrics, Logger: log,
		FrontendBaseURL: "https://app.example.com",
	})

	env.app = fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	apphttp.Router(env.app, apphttp.RouterDeps{
		AuthUC:          env.authUC,
		Workflow:        wf,
		CompanyUC:       usecase.NewCompanyUseCase(env.store.Companies(), env.store, wf),
		AdministratorUC: usecase.NewAdministratorUseCase(env.store.Memberships()),
		APIKeyUC:        usecase.NewAPIKeyUseCase(env.store.APIKeys(), env.store.Scopes(), bc),
		ScopeUC:         usecase.NewScopeUseCase(env.store.Scopes()),
		Metrics:         env.metrics,
		Logger:          log,
		RateLimit:       config.RateLimitConfig{PerSecond: 1000, Burst: 1000},
		ServiceName:     "access-control-api",
	})
	return env
}

// login devuelve el header Authorization para el usuario indicado.
func (e *testEnv) login(t *testing.T, username, pwd string) string {
	t.Helper()
	res, err := e.authUC.Login(context.Background(), dto.LoginRequest{Username: username, Password: pwd})
	require.NoError(t, err)
	return "Bearer " + res.AccessToken
}

// do lanza la petición con body JSON opcional y devuelve la respuesta.
func (e *testEnv) do(t *testing.T, method, path, authHeader string, body any) *http.Response {
	t.Helper()
	return doRequest(t, e.app, method, path, authHeader, body)
}

func doRequest(t *testing.T, app *fiber.App, method, path, authHeader string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
