package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// Tipos de token (claim "type"). Distinguirlos evita presentar un token emitido para
// un propósito en un endpoint que espera otro.
const (
	TypeAccess        = "access"
	TypeRefresh       = "refresh"
	TypeInvite        = "invite"
	TypePasswordReset = "passwordReset"
)

// Duraciones por defecto.
const (
	DefaultAccessTTL   = 15 * time.Minute
	DefaultRefreshTTL  = 7 * 24 * time.Hour
	DefaultInviteTTL   = 30 * time.Minute
	DefaultPasswordTTL = 30 * time.Minute
)

// MinSecretBytes HMAC-SHA256 requiere al menos 256 bits de clave.
const MinSecretBytes = 32

// Claims claims estándar más los campos propios de cada tipo de token. Los campos
// que no aplican a un tipo se omiten del payload.
type Claims struct {
	jwt.RegisteredClaims
	Type       string   `json:"type,omitempty"`
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	CompanyID  *int64   `json:"companyId,omitempty"`
	Registered *bool    `json:"registered,omitempty"`
}

// AccessSubject datos del principal que viajan en el access token.
type AccessSubject struct {
	AdministratorID int64
	Username        string
	Email           string
	Roles           []string
}

// AccessClaims resultado de VerifyAccess.
type AccessClaims struct {
	AdministratorID int64
	Username        string
	Email           string
	Roles           []string
}

// InviteClaims resultado de VerifyInvite.
type InviteClaims struct {
	AdministratorID int64
	CompanyID       int64
	Registered      bool
}

// Config parámetros del servicio de tokens. Las duraciones en cero toman el valor por defecto.
type Config struct {
	Secret      string
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	InviteTTL   time.Duration
	PasswordTTL time.Duration
	// Now reloj para emisión y validación; nil = time.Now.
	Now func() time.Time
}

// Service emite y verifica los cuatro tipos de token con una única clave simétrica.
// No guarda estado: es seguro para uso concurrente.
type Service struct {
	key         []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	inviteTTL   time.Duration
	passwordTTL time.Duration
	now         func() time.Time
	parser      *jwt.Parser
}

// NewService valida la configuración y construye el servicio.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("jwt: el secret debe tener al menos %d bytes", MinSecretBytes)
	}
	s := &Service{
		key:         []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		accessTTL:   orDefault(cfg.AccessTTL, DefaultAccessTTL),
		refreshTTL:  orDefault(cfg.RefreshTTL, DefaultRefreshTTL),
		inviteTTL:   orDefault(cfg.InviteTTL, DefaultInviteTTL),
		passwordTTL: orDefault(cfg.PasswordTTL, DefaultPasswordTTL),
		now:         cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(opts...)
	return s, nil
}

// AccessTTL vigencia de los access tokens.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// InviteTTL vigencia de los tokens de invitación (se informa en el correo).
func (s *Service) InviteTTL() time.Duration { return s.inviteTTL }

// PasswordResetTTL vigencia de los tokens de restablecimiento.
func (s *Service) PasswordResetTTL() time.Duration { return s.passwordTTL }

// IssueAccess genera el access token: subject, username, email y roles.
func (s *Service) IssueAccess(p AccessSubject) (string, error) {
	c := s.base(p.AdministratorID, s.accessTTL, TypeAccess)
	c.Username = p.Username
	c.Email = p.Email
	c.Roles = p.Roles
	return s.sign(c)
}

// IssueRefresh genera el refresh token. Solo lleva el subject: no puede pasar por access token.
func (s *Service) IssueRefresh(administratorID int64) (string, error) {
	return s.sign(s.base(administratorID, s.refreshTTL, TypeRefresh))
}

// IssueInvite genera el token de invitación a una empresa.
func (s *Service) IssueInvite(administratorID, companyID int64, registered bool) (string, error) {
	c := s.base(administratorID, s.inviteTTL, TypeInvite)
	c.CompanyID = &companyID
	c.Registered = &registered
	return s.sign(c)
}

// IssuePasswordReset genera el token de restablecimiento de contraseña.
func (s *Service) IssuePasswordReset(administratorID int64) (string, error) {
	return s.sign(s.base(administratorID, s.passwordTTL, TypePasswordReset))
}

// VerifyAccess valida firma y expiración y exige username y email.
func (s *Service) VerifyAccess(token string) (*AccessClaims, error) {
	c, id, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if c.Username == "" || c.Email == "" {
		return nil, domain.Errorf(domain.KindTokenInvalid, "token sin claims de acceso")
	}
	if c.Type != "" && c.Type != TypeAccess {
		return nil, mismatch(TypeAccess, c.Type)
	}
	return &AccessClaims{AdministratorID: id, Username: c.Username, Email: c.Email, Roles: c.Roles}, nil
}

// VerifyRefresh devuelve el id del administrador del refresh token.
func (s *Service) VerifyRefresh(token string) (int64, error) {
	return s.verifyTyped(token, TypeRefresh)
}

// VerifyInvite devuelve administrador y empresa de un token de invitación.
func (s *Service) VerifyInvite(token string) (*InviteClaims, error) {
	c, id, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if c.Type != TypeInvite {
		return nil, mismatch(TypeInvite, c.Type)
	}
	if c.CompanyID == nil {
		return nil, domain.Errorf(domain.KindTokenInvalid, "token de invitación sin companyId")
	}
	out := &InviteClaims{AdministratorID: id, CompanyID: *c.CompanyID}
	if c.Registered != nil {
		out.Registered = *c.Registered
	}
	return out, nil
}

// VerifyPasswordReset devuelve el id del administrador de un token de restablecimiento.
func (s *Service) VerifyPasswordReset(token string) (int64, error) {
	return s.verifyTyped(token, TypePasswordReset)
}

func (s *Service) verifyTyped(token, typ string) (int64, error) {
	c, id, err := s.parse(token)
	if err != nil {
		return 0, err
	}
	if c.Type != typ {
		return 0, mismatch(typ, c.Type)
	}
	return id, nil
}

func (s *Service) base(administratorID int64, ttl time.Duration, typ string) *Claims {
	now := s.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(administratorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: typ,
	}
}

func (s *Service) sign(c *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("firmar token: %w", err)
	}
	return signed, nil
}

// parse valida firma, algoritmo, expiración y emisor, y devuelve el subject numérico.
func (s *Service) parse(tokenString string) (*Claims, int64, error) {
	if tokenString == "" {
		return nil, 0, domain.Errorf(domain.KindTokenInvalid, "token vacío")
	}
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		msg := "token inválido"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expirado"
		}
		return nil, 0, domain.Wrap(domain.KindTokenInvalid, msg, err)
	}
	if !token.Valid {
		return nil, 0, domain.Errorf(domain.KindTokenInvalid, "token inválido")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, 0, domain.Errorf(domain.KindTokenInvalid, "subject inválido")
	}
	return claims, id, nil
}

// mismatch es TokenTypeMismatch y además coincide con ErrTokenInvalid vía Unwrap.
func mismatch(want, got string) error {
	return &domain.Error{
		Kind: domain.KindTokenTypeMismatch,
		Msg:  fmt.Sprintf("se esperaba token %q, se recibió %q", want, got),
		Err:  domain.ErrTokenInvalid,
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
