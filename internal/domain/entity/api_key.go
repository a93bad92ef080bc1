package entity

import (
	"sort"
	"time"

	"github.com/jhoicas/access-control-api/internal/domain"
)

// Scope permiso que puede concederse a una API key. Key es el identificador estable.
type Scope struct {
	ID          int64
	Key         string
	Name        string
	Description string
	Enabled     bool
}

// DefaultScopes scopes que se cargan al inicializar el almacenamiento.
func DefaultScopes() []Scope {
	return []Scope{
		{Key: "fishery-activity", Name: "Fishery activity", Description: "Allows reading fishery activity data", Enabled: true},
		{Key: "fishing-facility", Name: "Fishery facility", Description: "Allows reading fishery facility data", Enabled: true},
	}
}

// APIKey credencial de máquina de una empresa. El secreto solo se guarda como hash.
type APIKey struct {
	ID          int64
	CompanyID   int64
	ClientID    string
	SecretHash  string
	Name        string
	Description string
	Enabled     bool
	Scopes      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateAPIKeyFields exige nombre y acota la descripción.
func ValidateAPIKeyFields(name, description string) error {
	if name == "" {
		return domain.Errorf(domain.KindInvalidInput, "el nombre de la api key es requerido")
	}
	if len(name) > maxNameLength {
		return domain.Errorf(domain.KindInvalidInput, "el nombre de la api key no puede superar %d caracteres", maxNameLength)
	}
	if len(description) > maxNameLength {
		return domain.Errorf(domain.KindInvalidInput, "la descripción no puede superar %d caracteres", maxNameLength)
	}
	return nil
}

// NormalizeScopeKeys quita duplicados y vacíos y ordena.
func NormalizeScopeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
