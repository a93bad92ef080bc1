package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/access-control-api/internal/application/access"
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

// errBadCredentials mismo error para usuario inexistente, no registrado o contraseña incorrecta.
var errBadCredentials = domain.Errorf(domain.KindUnauthorized, "usuario o contraseña inválidos")

// Tokens operaciones del servicio de tokens que usa auth.
type Tokens interface {
	AccessTTL() time.Duration
	IssueAccess(p jwt.AccessSubject) (string, error)
	IssueRefresh(administratorID int64) (string, error)
	IssuePasswordReset(administratorID int64) (string, error)
	VerifyAccess(token string) (*jwt.AccessClaims, error)
	VerifyRefresh(token string) (int64, error)
	VerifyPasswordReset(token string) (int64, error)
}

// Deps dependencias del caso de uso.
type Deps struct {
	Administrators  repository.AdministratorRepository
	Tx              repository.TxRunner
	Guard           *access.Guard
	Tokens          Tokens
	Hasher          ports.PasswordHasher
	Policy          password.Policy
	Mailer          ports.EmailSender
	Metrics         *metrics.Metrics
	Logger          *logger.Logger
	FrontendBaseURL string
}

// AuthUseCase casos de uso de autenticación: login, refresh, restablecimiento de
// contraseña y resolución del principal a partir de un access token.
type AuthUseCase struct {
	admins   repository.AdministratorRepository
	tx       repository.TxRunner
	guard    *access.Guard
	tokens   Tokens
	hasher   ports.PasswordHasher
	policy   password.Policy
	mailer   ports.EmailSender
	metrics  *metrics.Metrics
	log      *logger.Logger
	frontend string
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(d Deps) *AuthUseCase {
	uc := &AuthUseCase{
		admins:   d.Administrators,
		tx:       d.Tx,
		guard:    d.Guard,
		tokens:   d.Tokens,
		hasher:   d.Hasher,
		policy:   d.Policy,
		mailer:   d.Mailer,
		metrics:  d.Metrics,
		log:      d.Logger,
		frontend: strings.TrimRight(d.FrontendBaseURL, "/"),
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	return uc
}

// Login verifica username (o email) y contraseña y devuelve el par de tokens.
// Un administrador que no completó su registro no puede iniciar sesión.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	admin, err := uc.admins.GetByUsernameOrEmail(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, fmt.Errorf("get administrator: %w", err)
	}
	if admin == nil || !admin.Registered() {
		return nil, errBadCredentials
	}
	if err := uc.hasher.Compare(admin.PasswordHash, in.Password); err != nil {
		return nil, errBadCredentials
	}
	return uc.issuePair(ctx, admin)
}

// Refresh canjea un refresh token por un par nuevo. El principal se vuelve a derivar
// del estado actual de los vínculos.
func (uc *AuthUseCase) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	id, err := uc.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		uc.metrics.TokenRejected(jwt.TypeRefresh)
		return nil, err
	}
	admin, err := uc.admins.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get administrator: %w", err)
	}
	if admin == nil || !admin.Registered() {
		return nil, domain.Errorf(domain.KindUnauthorized, "administrador no disponible")
	}
	return uc.issuePair(ctx, admin)
}

// RequestPasswordReset envía el enlace de restablecimiento al email indicado.
func (uc *AuthUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	admin, err := uc.admins.GetByUsernameOrEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("get administrator: %w", err)
	}
	if admin == nil {
		return domain.ErrAdministratorNotFound
	}
	token, err := uc.tokens.IssuePasswordReset(admin.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	uc.metrics.TokenIssued(jwt.TypePasswordReset)
	link := fmt.Sprintf("%s/reset-password?token=%s", uc.frontend, url.QueryEscape(token))
	if err := uc.mailer.SendPasswordReset(ctx, admin.Email, link, admin.FirstName); err != nil {
		uc.metrics.MailFailed("password_reset")
		return domain.Wrap(domain.KindMailDelivery, "no se pudo enviar el correo de restablecimiento", err)
	}
	uc.log.Info().Int64("administrator_id", admin.ID).Msg("correo de restablecimiento enviado")
	return nil
}

// ResetPassword fija una nueva contraseña validada por la política.
func (uc *AuthUseCase) ResetPassword(ctx context.Context, token, newPassword string) error {
	id, err := uc.tokens.VerifyPasswordReset(token)
	if err != nil {
		uc.metrics.TokenRejected(jwt.TypePasswordReset)
		return err
	}
	if err := uc.policy.Validate(newPassword); err != nil {
		return err
	}
	hash, err := uc.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return uc.tx.Run(ctx, func(ctx context.Context, repos repository.Repositories) error {
		admin, err := repos.Administrators.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get administrator: %w", err)
		}
		if admin == nil {
			return domain.ErrAdministratorNotFound
		}
		admin.PasswordHash = hash
		admin.UpdatedAt = time.Now()
		if err := repos.Administrators.Update(ctx, admin); err != nil {
			return fmt.Errorf("update administrator: %w", err)
		}
		return nil
	})
}

// Authenticate valida el access token y resuelve el principal con sus empresas actuales.
func (uc *AuthUseCase) Authenticate(ctx context.Context, accessToken string) (*access.Principal, error) {
	claims, err := uc.tokens.VerifyAccess(accessToken)
	if err != nil {
		uc.metrics.TokenRejected(jwt.TypeAccess)
		return nil, err
	}
	admin, err := uc.admins.GetByID(ctx, claims.AdministratorID)
	if err != nil {
		return nil, fmt.Errorf("get administrator: %w", err)
	}
	if admin == nil {
		return nil, domain.Errorf(domain.KindUnauthorized, "administrador no disponible")
	}
	return uc.guard.Authenticate(ctx, admin)
}

func (uc *AuthUseCase) issuePair(ctx context.Context, admin *entity.Administrator) (*dto.LoginResponse, error) {
	p, err := uc.guard.Authenticate(ctx, admin)
	if err != nil {
		return nil, err
	}
	accessToken, err := uc.tokens.IssueAccess(jwt.AccessSubject{
		AdministratorID: admin.ID,
		Username:        admin.Username,
		Email:           admin.Email,
		Roles:           p.Roles,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := uc.tokens.IssueRefresh(admin.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	uc.metrics.TokenIssued(jwt.TypeAccess)
	uc.metrics.TokenIssued(jwt.TypeRefresh)
	return &dto.LoginResponse{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		TokenType:     "Bearer",
		ExpiresIn:     int64(uc.tokens.AccessTTL() / time.Second),
		Administrator: ToAdministratorResponse(admin),
		CompanyIDs:    p.CompanyIDs,
	}, nil
}

// ToAdministratorResponse convierte la entidad a DTO.
func ToAdministratorResponse(a *entity.Administrator) dto.AdministratorResponse {
	return dto.AdministratorResponse{
		ID:           a.ID,
		Email:        a.Email,
		Username:     a.Username,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Registered:   a.Registered(),
		RegisteredAt: a.RegisteredAt,
	}
}

// IsBadCredentials informa si err es el rechazo genérico de login.
func IsBadCredentials(err error) bool {
	return errors.Is(err, errBadCredentials)
}
