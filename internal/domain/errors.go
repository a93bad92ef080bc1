package domain

import (
	"errors"
	"fmt"
)

// Kind clasifica los errores de dominio. El conjunto es cerrado: la capa HTTP
// traduce cada Kind a un código de estado.
type Kind uint8

const (
	KindInternal Kind = iota
	KindTokenInvalid
	KindTokenTypeMismatch
	KindNotFound
	KindAlreadyLinked
	KindRoleInvalid
	KindWeakPassword
	KindLastActiveAdmin
	KindMailDelivery
	KindInvalidState
	KindForbidden
	KindUnauthorized
	KindInvalidInput
	KindConflict
)

var kindNames = map[Kind]string{
	KindInternal:          "error interno",
	KindTokenInvalid:      "token inválido",
	KindTokenTypeMismatch: "tipo de token incorrecto",
	KindNotFound:          "recurso no encontrado",
	KindAlreadyLinked:     "el administrador ya está vinculado a la empresa",
	KindRoleInvalid:       "rol inválido",
	KindWeakPassword:      "contraseña débil",
	KindLastActiveAdmin:   "no puede quedar el sistema sin administradores activos",
	KindMailDelivery:      "fallo en el envío de correo",
	KindInvalidState:      "estado inválido",
	KindForbidden:         "acceso denegado",
	KindUnauthorized:      "no autorizado",
	KindInvalidInput:      "entrada inválida",
	KindConflict:          "conflicto con el estado actual",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Error es el error tipado que devuelven los casos de uso.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara por Kind. Un objetivo sin mensaje coincide con cualquier error
// de su Kind; con mensaje, solo con el mismo mensaje.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

// Errorf construye un *Error del Kind indicado.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap construye un *Error con causa.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf devuelve el Kind del primer *Error de la cadena, o KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Sentinelas por Kind (coinciden con cualquier error del mismo Kind).
var (
	ErrTokenInvalid      = &Error{Kind: KindTokenInvalid}
	ErrTokenTypeMismatch = &Error{Kind: KindTokenTypeMismatch}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyLinked     = &Error{Kind: KindAlreadyLinked}
	ErrRoleInvalid       = &Error{Kind: KindRoleInvalid}
	ErrWeakPassword      = &Error{Kind: KindWeakPassword}
	ErrLastActiveAdmin   = &Error{Kind: KindLastActiveAdmin}
	ErrMailDelivery      = &Error{Kind: KindMailDelivery}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Entidades no encontradas.
var (
	ErrAdministratorNotFound = &Error{Kind: KindNotFound, Msg: "administrador no encontrado"}
	ErrCompanyNotFound       = &Error{Kind: KindNotFound, Msg: "empresa no encontrada"}
	ErrMembershipNotFound    = &Error{Kind: KindNotFound, Msg: "vínculo administrador-empresa no encontrado"}
	ErrAPIKeyNotFound        = &Error{Kind: KindNotFound, Msg: "api key no encontrada"}
)
