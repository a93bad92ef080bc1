package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/access-control-api/internal/application/access"
	"github.com/jhoicas/access-control-api/internal/application/dto"
	"github.com/jhoicas/access-control-api/internal/application/ports"
	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

// APIKeyUseCase administra las API keys de una empresa. Toda operación exige que el
// principal tenga vínculo activo con la empresa.
type APIKeyUseCase struct {
	keys   repository.APIKeyRepository
	scopes repository.ScopeRepository
	hasher ports.PasswordHasher
	newID  func() string
}

// NewAPIKeyUseCase construye el caso de uso. El client_id y el secreto son UUID v4.
func NewAPIKeyUseCase(keys repository.APIKeyRepository, scopes repository.ScopeRepository, hasher ports.PasswordHasher) *APIKeyUseCase {
	return &APIKeyUseCase{keys: keys, scopes: scopes, hasher: hasher, newID: uuid.NewString}
}

// Create genera client_id y secreto, guarda el hash del secreto y devuelve el secreto
// en claro solo en esta respuesta.
func (uc *APIKeyUseCase) Create(ctx context.Context, p *access.Principal, in dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	if err := access.RequireAccess(p, in.CompanyID); err != nil {
		return nil, err
	}
	name, description := strings.TrimSpace(in.Name), strings.TrimSpace(in.Description)
	if err := entity.ValidateAPIKeyFields(name, description); err != nil {
		return nil, err
	}
	scopes, err := uc.resolveScopes(ctx, in.Scopes)
	if err != nil {
		return nil, err
	}
	secret := uc.newID()
	hash, err := uc.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash api key secret: %w", err)
	}
	now := time.Now()
	key := &entity.APIKey{
		CompanyID:   in.CompanyID,
		ClientID:    uc.newID(),
		SecretHash:  hash,
		Name:        name,
		Description: description,
		Enabled:     in.Enabled == nil || *in.Enabled,
		Scopes:      scopes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return &dto.CreateAPIKeyResponse{APIKeyResponse: toAPIKeyResponse(key), ClientSecret: secret}, nil
}

// ListByCompany lista con paginación las keys de la empresa.
func (uc *APIKeyUseCase) ListByCompany(ctx context.Context, p *access.Principal, companyID int64, page dto.PageRequest) (*dto.APIKeyListResponse, error) {
	if err := access.RequireAccess(p, companyID); err != nil {
		return nil, err
	}
	page.DefaultPage()
	list, total, err := uc.keys.ListByCompany(ctx, companyID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	items := make([]dto.APIKeyResponse, 0, len(list))
	for _, k := range list {
		items = append(items, toAPIKeyResponse(k))
	}
	return &dto.APIKeyListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Update reemplaza nombre, descripción, estado y scopes. El secreto no cambia.
func (uc *APIKeyUseCase) Update(ctx context.Context, p *access.Principal, id int64, in dto.UpdateAPIKeyRequest) (*dto.APIKeyResponse, error) {
	if err := access.RequireAccess(p, in.CompanyID); err != nil {
		return nil, err
	}
	name, description := strings.TrimSpace(in.Name), strings.TrimSpace(in.Description)
	if err := entity.ValidateAPIKeyFields(name, description); err != nil {
		return nil, err
	}
	if in.Enabled == nil {
		return nil, domain.Errorf(domain.KindInvalidInput, "enabled es requerido")
	}
	key, err := uc.keys.GetByID(ctx, in.CompanyID, id)
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	if key == nil {
		return nil, domain.ErrAPIKeyNotFound
	}
	scopes, err := uc.resolveScopes(ctx, in.Scopes)
	if err != nil {
		return nil, err
	}
	key.Name = name
	key.Description = description
	key.Enabled = *in.Enabled
	key.Scopes = scopes
	key.UpdatedAt = time.Now()
	if err := uc.keys.Update(ctx, key); err != nil {
		return nil, err
	}
	out := toAPIKeyResponse(key)
	return &out, nil
}

// Delete borra las keys indicadas de la empresa. Los IDs de otras empresas o
// inexistentes se ignoran.
func (uc *APIKeyUseCase) Delete(ctx context.Context, p *access.Principal, in dto.DeleteAPIKeysRequest) (int, error) {
	if err := access.RequireAccess(p, in.CompanyID); err != nil {
		return 0, err
	}
	n, err := uc.keys.DeleteMany(ctx, in.CompanyID, in.APIKeyIDs)
	if err != nil {
		return 0, fmt.Errorf("delete api keys: %w", err)
	}
	return n, nil
}

// resolveScopes normaliza los keys y exige que todos existan y estén habilitados.
func (uc *APIKeyUseCase) resolveScopes(ctx context.Context, keys []string) ([]string, error) {
	keys = entity.NormalizeScopeKeys(keys)
	if len(keys) == 0 {
		return keys, nil
	}
	found, err := uc.scopes.GetEnabledByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get scopes: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, s := range found {
		known[s.Key] = true
	}
	for _, k := range keys {
		if !known[k] {
			return nil, domain.Errorf(domain.KindInvalidInput, "scope desconocido: %q", k)
		}
	}
	return keys, nil
}

func toAPIKeyResponse(k *entity.APIKey) dto.APIKeyResponse {
	scopes := k.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return dto.APIKeyResponse{
		ID:          k.ID,
		CompanyID:   k.CompanyID,
		ClientID:    k.ClientID,
		Name:        k.Name,
		Description: k.Description,
		Enabled:     k.Enabled,
		Scopes:      scopes,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
}

// ScopeUseCase consulta el catálogo de scopes.
type ScopeUseCase struct {
	scopes repository.ScopeRepository
}

// NewScopeUseCase construye el caso de uso.
func NewScopeUseCase(scopes repository.ScopeRepository) *ScopeUseCase {
	return &ScopeUseCase{scopes: scopes}
}

// List devuelve los scopes habilitados.
func (uc *ScopeUseCase) List(ctx context.Context) (*dto.ScopeListResponse, error) {
	list, err := uc.scopes.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	items := make([]dto.ScopeResponse, 0, len(list))
	for _, s := range list {
		items = append(items, dto.ScopeResponse{Key: s.Key, Name: s.Name, Description: s.Description})
	}
	return &dto.ScopeListResponse{Items: items}, nil
}
