// Package membership gestiona el ciclo de vida del vínculo administrador-empresa:
// invitación, aceptación, registro, habilitación y eliminación.
package membership

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/password"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
	"github.com/jhoicas/access-control-api/pkg/jwt"
	"github.com/jhoicas/access-control-api/pkg/logger"
	"github.com/jhoicas/access-control-api/pkg/metrics"
)

// Motivos de rechazo para métricas.
const (
	reasonLastActiveAdmin = "last_active_admin"
	reasonAlreadyLinked   = "already_linked"
)

// InviteTokens emisión y verificación de tokens de invitación.
type InviteTokens interface {
	IssueInvite(administratorID, companyID int64, registered bool) (string, error)
	VerifyInvite(token string) (*jwt.InviteClaims, error)
}

// Deps dependencias del workflow.
type Deps struct {
	Tx              repository.TxRunner
	Tokens          InviteTokens
	Mailer          ports.EmailSender
	Hasher          ports.PasswordHasher
	Policy          password.Policy
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
	FrontendBaseURL string
	Now             func() time.Time
}

// Workflow ejecuta cada operación dentro de una única transacción de TxRunner;
// el conteo de administradores activos y la escritura quedan en la misma transacción.
type Workflow struct {
	tx       repository.TxRunner
	tokens   InviteTokens
	mailer   ports.EmailSender
	hasher   ports.PasswordHasher
	policy   password.Policy
	metrics  *metrics.Metrics
	log      *logger.Logger
	frontend string
	now      func() time.Time
}

// NewWorkflow construye el workflow.
func NewWorkflow(d Deps) *Workflow {
	w := &Workflow{
		tx:       d.Tx,
		tokens:   d.Tokens,
		mailer:   d.Mailer,
		hasher:   d.Hasher,
		policy:   d.Policy,
		metrics:  d.Metrics,
		log:      d.Logger,
		frontend: strings.TrimRight(d.FrontendBaseURL, "/"),
		now:      d.Now,
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.log == nil {
		w.log = logger.Nop()
	}
	return w
}

// InviteInput datos de una invitación.
type InviteInput struct {
	Email     string
	CompanyID int64
	Role      string
}

// RegisterInput datos para completar el registro desde una invitación.
type RegisterInput struct {
	Token     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// UpdateInput nuevo estado del vínculo. Role vacío conserva el rol actual.
type UpdateInput struct {
	AdministratorID int64
	CompanyID       int64
	Enabled         bool
	Role            string
}

// Invite busca el administrador por email o crea uno de relleno, crea el vínculo
// (enabled=true, accepted=false) y envía el enlace de invitación. Si el correo falla
// la transacción se revierte y no queda ni vínculo ni administrador nuevo.
func (w *Workflow) Invite(ctx context.Context, in InviteInput) (*dto.MembershipResponse, error) {
	role, err := entity.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if err := entity.ValidateEmail(email); err != nil {
		return nil, err
	}

	var out *dto.MembershipResponse
	err = w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		company, err := repos.Companies.GetByID(ctx, in.CompanyID)
		if err != nil {
			return fmt.Errorf("get company: %w", err)
		}
		if company == nil {
			return domain.ErrCompanyNotFound
		}
		admin, err := repos.Administrators.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("get administrator: %w", err)
		}
		if admin == nil {
			if admin, err = w.createPlaceholder(ctx, repos, email); err != nil {
				return err
			}
		}
		existing, err := repos.Memberships.Get(ctx, admin.ID, company.ID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if existing != nil {
			w.metrics.MembershipRejected(reasonAlreadyLinked)
			return domain.ErrAlreadyLinked
		}
		now := w.now()
		m := &entity.Membership{
			AdministratorID: admin.ID,
			CompanyID:       company.ID,
			Role:            role,
			Enabled:         true,
			Accepted:        false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repos.Memberships.Create(ctx, m); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
		token, err := w.tokens.IssueInvite(admin.ID, company.ID, admin.Registered())
		if err != nil {
			return fmt.Errorf("issue invite token: %w", err)
		}
		w.metrics.TokenIssued(jwt.TypeInvite)
		if err := w.mailer.SendInvite(ctx, admin.Email, company.Name, w.link("accept-invite", token)); err != nil {
			w.metrics.MailFailed("invite")
			return domain.Wrap(domain.KindMailDelivery, "no se pudo enviar la invitación", err)
		}
		out = toMembershipResponse(m, admin)
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.log.Info().
		Int64("administrator_id", out.AdministratorID).
		Int64("company_id", out.CompanyID).
		Str("role", out.Role).
		Msg("invitación enviada")
	return out, nil
}

// AcceptInvite marca el vínculo como aceptado y además lo habilita. El administrador
// ya debe estar registrado; si no, InvalidState.
func (w *Workflow) AcceptInvite(ctx context.Context, token string) (*dto.MembershipResponse, error) {
	claims, err := w.verifyInvite(token)
	if err != nil {
		return nil, err
	}
	var out *dto.MembershipResponse
	err = w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m, err := repos.Memberships.Get(ctx, claims.AdministratorID, claims.CompanyID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if m == nil {
			return domain.ErrMembershipNotFound
		}
		admin, err := repos.Administrators.GetByID(ctx, claims.AdministratorID)
		if err != nil {
			return fmt.Errorf("get administrator: %w", err)
		}
		if admin == nil {
			return domain.ErrAdministratorNotFound
		}
		if !admin.Registered() {
			return domain.Errorf(domain.KindInvalidState, "administrador no registrado")
		}
		m.Accepted = true
		m.Enabled = true
		m.UpdatedAt = w.now()
		if err := repos.Memberships.Update(ctx, m); err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		out = toMembershipResponse(m, admin)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterAndAccept completa el registro del administrador invitado (username,
// contraseña, nombres) y acepta el vínculo de la invitación.
func (w *Workflow) RegisterAndAccept(ctx context.Context, in RegisterInput) (*dto.MembershipResponse, error) {
	claims, err := w.verifyInvite(in.Token)
	if err != nil {
		return nil, err
	}
	if err := w.policy.Validate(in.Password); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	if err := entity.ValidateUsername(username); err != nil {
		return nil, err
	}
	hash, err := w.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var out *dto.MembershipResponse
	err = w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		admin, err := repos.Administrators.GetByID(ctx, claims.AdministratorID)
		if err != nil {
			return fmt.Errorf("get administrator: %w", err)
		}
		if admin == nil {
			return domain.ErrAdministratorNotFound
		}
		if admin.Registered() {
			return domain.Errorf(domain.KindInvalidState, "el administrador ya completó su registro")
		}
		m, err := repos.Memberships.Get(ctx, claims.AdministratorID, claims.CompanyID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if m == nil {
			return domain.ErrMembershipNotFound
		}
		taken, err := repos.Administrators.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("get administrator by username: %w", err)
		}
		if taken != nil && taken.ID != admin.ID {
			return domain.Errorf(domain.KindConflict, "el username %q ya está en uso", username)
		}
		now := w.now()
		if err := admin.Register(username, hash, strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), now); err != nil {
			return err
		}
		if err := repos.Administrators.Update(ctx, admin); err != nil {
			return fmt.Errorf("update administrator: %w", err)
		}
		m.Accepted = true
		m.UpdatedAt = now
		if err := repos.Memberships.Update(ctx, m); err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		out = toMembershipResponse(m, admin)
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.log.Info().
		Int64("administrator_id", out.AdministratorID).
		Int64("company_id", out.CompanyID).
		Msg("registro completado desde invitación")
	return out, nil
}

// UpdateMembership aplica enabled y role. Deshabilitar un vínculo activo se rechaza con
// LastActiveAdmin cuando es el último activo de todo el sistema.
func (w *Workflow) UpdateMembership(ctx context.Context, in UpdateInput) (*dto.MembershipResponse, error) {
	var role entity.Role
	if in.Role != "" {
		r, err := entity.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}

	var out *dto.MembershipResponse
	err := w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m, err := repos.Memberships.Get(ctx, in.AdministratorID, in.CompanyID)
		if err != nil {
			return fmt.Errorf("get membership: %w", err)
		}
		if m == nil {
			return domain.ErrMembershipNotFound
		}
		if m.Active() && !in.Enabled {
			active, err := repos.Memberships.CountActive(ctx)
			if err != nil {
				return fmt.Errorf("count active memberships: %w", err)
			}
			if active <= 1 {
				w.metrics.MembershipRejected(reasonLastActiveAdmin)
				return domain.ErrLastActiveAdmin
			}
		}
		m.Enabled = in.Enabled
		if role != "" {
			m.Role = role
		}
		m.UpdatedAt = w.now()
		if err := repos.Memberships.Update(ctx, m); err != nil {
			return fmt.Errorf("update membership: %w", err)
		}
		admin, err := repos.Administrators.GetByID(ctx, m.AdministratorID)
		if err != nil {
			return fmt.Errorf("get administrator: %w", err)
		}
		out = toMembershipResponse(m, admin)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMemberships elimina los vínculos de los administradores indicados con la
// empresa. Se rechaza con LastActiveAdmin si el sistema quedaría sin vínculos activos;
// MembershipNotFound si ninguno existe.
func (w *Workflow) DeleteMemberships(ctx context.Context, administratorIDs []int64, companyID int64) (int, error) {
	if len(administratorIDs) == 0 {
		return 0, domain.Errorf(domain.KindInvalidInput, "se requiere al menos un administrador")
	}
	deleted := 0
	err := w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		matched, err := repos.Memberships.ListByAdministratorsAndCompany(ctx, administratorIDs, companyID)
		if err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}
		if len(matched) == 0 {
			return domain.ErrMembershipNotFound
		}
		keys := make([]entity.MembershipKey, 0, len(matched))
		activeToDelete := 0
		for _, m := range matched {
			keys = append(keys, m.Key())
			if m.Active() {
				activeToDelete++
			}
		}
		if activeToDelete > 0 {
			active, err := repos.Memberships.CountActive(ctx)
			if err != nil {
				return fmt.Errorf("count active memberships: %w", err)
			}
			if active-activeToDelete <= 0 {
				w.metrics.MembershipRejected(reasonLastActiveAdmin)
				return domain.ErrLastActiveAdmin
			}
		}
		if err := repos.Memberships.DeleteMany(ctx, keys); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	w.log.Info().Int64("company_id", companyID).Int("deleted", deleted).Msg("vínculos eliminados")
	return deleted, nil
}

// AddAdministratorToCompany vincula directamente (aceptado y habilitado) a un
// administrador existente con una empresa y lo marca registrado si aún no lo estaba.
func (w *Workflow) AddAdministratorToCompany(ctx context.Context, administratorID, companyID int64, role entity.Role) (*dto.MembershipResponse, error) {
	var out *dto.MembershipResponse
	err := w.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		out, err = w.Provision(ctx, repos, administratorID, companyID, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Provision es AddAdministratorToCompany sobre una transacción ya abierta, para que
// otros casos de uso (alta de empresa, seed) lo combinen con sus propias escrituras.
func (w *Workflow) Provision(ctx context.Context, repos repository.Repositories, administratorID, companyID int64, role entity.Role) (*dto.MembershipResponse, error) {
	if _, err := entity.ParseRole(string(role)); err != nil {
		return nil, err
	}
	company, err := repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if company == nil {
		return nil, domain.ErrCompanyNotFound
	}
	admin, err := repos.Administrators.GetByID(ctx, administratorID)
	if err != nil {
		return nil, fmt.Errorf("get administrator: %w", err)
	}
	if admin == nil {
		return nil, domain.ErrAdministratorNotFound
	}
	existing, err := repos.Memberships.Get(ctx, administratorID, companyID)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrAlreadyLinked
	}
	now := w.now()
	m := &entity.Membership{
		AdministratorID: administratorID,
		CompanyID:       companyID,
		Role:            role,
		Enabled:         true,
		Accepted:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repos.Memberships.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}
	if !admin.Registered() {
		admin.RegisteredAt = &now
		admin.UpdatedAt = now
		if err := repos.Administrators.Update(ctx, admin); err != nil {
			return nil, fmt.Errorf("update administrator: %w", err)
		}
	}
	return toMembershipResponse(m, admin), nil
}

// createPlaceholder crea un administrador invitado: username aleatorio, hash de un
// secreto que nadie conoce y nombres de relleno.
func (w *Workflow) createPlaceholder(ctx context.Context, repos repository.Repositories, email string) (*entity.Administrator, error) {
	hash, err := w.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}
	now := w.now()
	admin := &entity.Administrator{
		Email:        email,
		Username:     uuid.NewString(),
		PasswordHash: hash,
		FirstName:    entity.PlaceholderFirstName,
		LastName:     entity.PlaceholderLastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repos.Administrators.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create administrator: %w", err)
	}
	return admin, nil
}

func (w *Workflow) verifyInvite(token string) (*jwt.InviteClaims, error) {
	claims, err := w.tokens.VerifyInvite(token)
	if err != nil {
		w.metrics.TokenRejected(jwt.TypeInvite)
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.Wrap(domain.KindTokenInvalid, "token de invitación inválido", err)
	}
	return claims, nil
}

func (w *Workflow) link(path, token string) string {
	return fmt.Sprintf("%s/%s?token=%s", w.frontend, path, url.QueryEscape(token))
}

func toMembershipResponse(m *entity.Membership, a *entity.Administrator) *dto.MembershipResponse {
	out := &dto.MembershipResponse{
		AdministratorID: m.AdministratorID,
		CompanyID:       m.CompanyID,
		Role:            string(m.Role),
		Enabled:         m.Enabled,
		Accepted:        m.Accepted,
		UpdatedAt:       m.UpdatedAt,
	}
	if a != nil {
		out.Email = a.Email
		out.Registered = a.Registered()
		if out.Registered {
			out.Username = a.Username
			out.FirstName = a.FirstName
			out.LastName = a.LastName
		}
	}
	return out
}

// ToMembershipResponse convierte una fila de listado a DTO.
func ToMembershipResponse(v *entity.MembershipView) dto.MembershipResponse {
	out := dto.MembershipResponse{
		AdministratorID: v.AdministratorID,
		CompanyID:       v.CompanyID,
		Email:           v.Email,
		Registered:      v.Registered,
		Role:            string(v.Role),
		Enabled:         v.Enabled,
		Accepted:        v.Accepted,
		UpdatedAt:       v.UpdatedAt,
	}
	if v.Registered {
		out.Username = v.Username
		out.FirstName = v.FirstName
		out.LastName = v.LastName
	}
	return out
}
