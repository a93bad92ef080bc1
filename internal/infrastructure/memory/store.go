// Package memory implementa los puertos de persistencia en memoria. Se usa con
// DB_DRIVER=memory en desarrollo y en los tests de casos de uso.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jhoicas/access-control-api/internal/domain"
	"github.com/jhoicas/access-control-api/internal/domain/entity"
	"github.com/jhoicas/access-control-api/internal/domain/repository"
)

var _ repository.TxRunner = (*Store)(nil)

type state struct {
	admins      map[int64]entity.Administrator
	companies   map[int64]entity.Company
	memberships map[entity.MembershipKey]entity.Membership
	apiKeys     map[int64]entity.APIKey
	scopes      map[string]entity.Scope
	adminSeq    int64
	companySeq  int64
	apiKeySeq   int64
}

func (s *state) clone() *state {
	c := &state{
		admins:      make(map[int64]entity.Administrator, len(s.admins)),
		companies:   make(map[int64]entity.Company, len(s.companies)),
		memberships: make(map[entity.MembershipKey]entity.Membership, len(s.memberships)),
		apiKeys:     make(map[int64]entity.APIKey, len(s.apiKeys)),
		scopes:      make(map[string]entity.Scope, len(s.scopes)),
		adminSeq:    s.adminSeq,
		companySeq:  s.companySeq,
		apiKeySeq:   s.apiKeySeq,
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.memberships {
		c.memberships[k] = v
	}
	for k, v := range s.apiKeys {
		v.Scopes = append([]string(nil), v.Scopes...)
		c.apiKeys[k] = v
	}
	for k, v := range s.scopes {
		c.scopes[k] = v
	}
	return c
}

// Store guarda administradores, empresas y vínculos en mapas protegidos por un mutex.
// Run mantiene el mutex durante toda la transacción, así que las transacciones se
// ejecutan en serie.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore construye un store sin datos salvo el catálogo de scopes por defecto.
func NewStore() *Store {
	st := &state{
		admins:      map[int64]entity.Administrator{},
		companies:   map[int64]entity.Company{},
		memberships: map[entity.MembershipKey]entity.Membership{},
		apiKeys:     map[int64]entity.APIKey{},
		scopes:      map[string]entity.Scope{},
	}
	for i, sc := range entity.DefaultScopes() {
		sc.ID = int64(i + 1)
		st.scopes[sc.Key] = sc
	}
	return &Store{st: st}
}

// Administrators repositorio fuera de transacción.
func (s *Store) Administrators() repository.AdministratorRepository {
	return &adminRepo{s: s}
}

// Companies repositorio fuera de transacción.
func (s *Store) Companies() repository.CompanyRepository {
	return &companyRepo{s: s}
}

// Memberships repositorio fuera de transacción.
func (s *Store) Memberships() repository.MembershipRepository {
	return &membershipRepo{s: s}
}

// APIKeys repositorio de API keys.
func (s *Store) APIKeys() repository.APIKeyRepository {
	return &apiKeyRepo{s: s}
}

// Scopes repositorio del catálogo de scopes.
func (s *Store) Scopes() repository.ScopeRepository {
	return &scopeRepo{s: s}
}

// AddScope agrega o reemplaza un scope del catálogo.
func (s *Store) AddScope(sc entity.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.st.scopes[sc.Key]; ok {
		sc.ID = old.ID
	} else {
		sc.ID = int64(len(s.st.scopes) + 1)
	}
	s.st.scopes[sc.Key] = sc
}

// Run ejecuta fn sobre una copia del estado y la publica solo si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	tx := &Store{st: work}
	repos := repository.Repositories{
		Administrators: &adminRepo{s: tx, inTx: true},
		Companies:      &companyRepo{s: tx, inTx: true},
		Memberships:    &membershipRepo{s: tx, inTx: true},
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	s.st = work
	return nil
}

// view ejecuta f con el estado; fuera de transacción toma el mutex.
func (s *Store) view(inTx bool, f func(st *state) error) error {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return f(s.st)
}

// ─── administrators ──────────────────────────────────────────────────────────

type adminRepo struct {
	s    *Store
	inTx bool
}

func (r *adminRepo) Create(_ context.Context, a *entity.Administrator) error {
	return r.s.view(r.inTx, func(st *state) error {
		for _, o := range st.admins {
			if strings.EqualFold(o.Email, a.Email) || o.Username == a.Username {
				return domain.Errorf(domain.KindConflict, "email o username ya registrado")
			}
		}
		st.adminSeq++
		a.ID = st.adminSeq
		st.admins[a.ID] = *a
		return nil
	})
}

func (r *adminRepo) GetByID(_ context.Context, id int64) (*entity.Administrator, error) {
	return r.find(func(a entity.Administrator) bool { return a.ID == id })
}

func (r *adminRepo) GetByEmail(_ context.Context, email string) (*entity.Administrator, error) {
	return r.find(func(a entity.Administrator) bool { return strings.EqualFold(a.Email, email) })
}

func (r *adminRepo) GetByUsername(_ context.Context, username string) (*entity.Administrator, error) {
	return r.find(func(a entity.Administrator) bool { return a.Username == username })
}

// GetByUsernameOrEmail prefiere la coincidencia por username sobre la de email.
func (r *adminRepo) GetByUsernameOrEmail(_ context.Context, identifier string) (*entity.Administrator, error) {
	a, err := r.find(func(a entity.Administrator) bool { return a.Username == identifier })
	if err != nil || a != nil {
		return a, err
	}
	return r.find(func(a entity.Administrator) bool { return strings.EqualFold(a.Email, identifier) })
}

func (r *adminRepo) Update(_ context.Context, a *entity.Administrator) error {
	return r.s.view(r.inTx, func(st *state) error {
		if _, ok := st.admins[a.ID]; !ok {
			return domain.ErrAdministratorNotFound
		}
		for _, o := range st.admins {
			if o.ID != a.ID && (strings.EqualFold(o.Email, a.Email) || o.Username == a.Username) {
				return domain.Errorf(domain.KindConflict, "email o username ya registrado")
			}
		}
		st.admins[a.ID] = *a
		return nil
	})
}

func (r *adminRepo) find(match func(entity.Administrator) bool) (*entity.Administrator, error) {
	var out *entity.Administrator
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, a := range st.admins {
			if match(a) {
				a := a
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, nil
}

// ─── companies ───────────────────────────────────────────────────────────────

type companyRepo struct {
	s    *Store
	inTx bool
}

func (r *companyRepo) Create(_ context.Context, c *entity.Company) error {
	return r.s.view(r.inTx, func(st *state) error {
		for _, o := range st.companies {
			if o.Name == c.Name {
				return domain.Errorf(domain.KindConflict, "ya existe una empresa con ese nombre")
			}
		}
		st.companySeq++
		c.ID = st.companySeq
		st.companies[c.ID] = *c
		return nil
	})
}

func (r *companyRepo) GetByID(_ context.Context, id int64) (*entity.Company, error) {
	var out *entity.Company
	_ = r.s.view(r.inTx, func(st *state) error {
		if c, ok := st.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, nil
}

func (r *companyRepo) GetByName(_ context.Context, name string) (*entity.Company, error) {
	var out *entity.Company
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, c := range st.companies {
			if c.Name == name {
				c := c
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, nil
}

func (r *companyRepo) ListByIDs(_ context.Context, ids []int64) ([]*entity.Company, error) {
	var out []*entity.Company
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, id := range ids {
			if c, ok := st.companies[id]; ok {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── memberships ─────────────────────────────────────────────────────────────

type membershipRepo struct {
	s    *Store
	inTx bool
}

func (r *membershipRepo) Create(_ context.Context, m *entity.Membership) error {
	return r.s.view(r.inTx, func(st *state) error {
		if _, ok := st.memberships[m.Key()]; ok {
			return domain.ErrAlreadyLinked
		}
		if _, ok := st.admins[m.AdministratorID]; !ok {
			return domain.ErrAdministratorNotFound
		}
		if _, ok := st.companies[m.CompanyID]; !ok {
			return domain.ErrCompanyNotFound
		}
		st.memberships[m.Key()] = *m
		return nil
	})
}

func (r *membershipRepo) Get(_ context.Context, administratorID, companyID int64) (*entity.Membership, error) {
	var out *entity.Membership
	_ = r.s.view(r.inTx, func(st *state) error {
		if m, ok := st.memberships[entity.MembershipKey{AdministratorID: administratorID, CompanyID: companyID}]; ok {
			out = &m
		}
		return nil
	})
	return out, nil
}

func (r *membershipRepo) Update(_ context.Context, m *entity.Membership) error {
	return r.s.view(r.inTx, func(st *state) error {
		if _, ok := st.memberships[m.Key()]; !ok {
			return domain.ErrMembershipNotFound
		}
		st.memberships[m.Key()] = *m
		return nil
	})
}

func (r *membershipRepo) ListByAdministratorsAndCompany(_ context.Context, administratorIDs []int64, companyID int64) ([]*entity.Membership, error) {
	var out []*entity.Membership
	_ = r.s.view(r.inTx, func(st *state) error {
		seen := map[int64]bool{}
		for _, id := range administratorIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if m, ok := st.memberships[entity.MembershipKey{AdministratorID: id, CompanyID: companyID}]; ok {
				m := m
				out = append(out, &m)
			}
		}
		return nil
	})
	return out, nil
}

func (r *membershipRepo) ListActiveByAdministrator(_ context.Context, administratorID int64) ([]*entity.Membership, error) {
	var out []*entity.Membership
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, m := range st.memberships {
			if m.AdministratorID == administratorID && m.Active() {
				m := m
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out, nil
}

func (r *membershipRepo) ListByCompany(_ context.Context, companyID int64, limit, offset int) ([]*entity.MembershipView, int, error) {
	var all []*entity.MembershipView
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, m := range st.memberships {
			if m.CompanyID != companyID {
				continue
			}
			a := st.admins[m.AdministratorID]
			all = append(all, &entity.MembershipView{
				Membership: m,
				Email:      a.Email,
				Username:   a.Username,
				FirstName:  a.FirstName,
				LastName:   a.LastName,
				Registered: a.Registered(),
			})
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].AdministratorID < all[j].AdministratorID })
	total := len(all)
	if offset >= total {
		return []*entity.MembershipView{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *membershipRepo) DeleteMany(_ context.Context, keys []entity.MembershipKey) error {
	return r.s.view(r.inTx, func(st *state) error {
		for _, k := range keys {
			delete(st.memberships, k)
		}
		return nil
	})
}

func (r *membershipRepo) CountActive(_ context.Context) (int, error) {
	n := 0
	_ = r.s.view(r.inTx, func(st *state) error {
		for _, m := range st.memberships {
			if m.Active() {
				n++
			}
		}
		return nil
	})
	return n, nil
}

// ─── api keys ────────────────────────────────────────────────────────────────

type apiKeyRepo struct {
	s *Store
}

func (r *apiKeyRepo) Create(_ context.Context, k *entity.APIKey) error {
	return r.s.view(false, func(st *state) error {
		if _, ok := st.companies[k.CompanyID]; !ok {
			return domain.ErrCompanyNotFound
		}
		for _, o := range st.apiKeys {
			if o.ClientID == k.ClientID {
				return domain.Errorf(domain.KindConflict, "client_id ya registrado")
			}
		}
		st.apiKeySeq++
		k.ID = st.apiKeySeq
		stored := *k
		stored.Scopes = append([]string(nil), k.Scopes...)
		st.apiKeys[k.ID] = stored
		return nil
	})
}

func (r *apiKeyRepo) GetByID(_ context.Context, companyID, id int64) (*entity.APIKey, error) {
	var out *entity.APIKey
	_ = r.s.view(false, func(st *state) error {
		if k, ok := st.apiKeys[id]; ok && k.CompanyID == companyID {
			k.Scopes = append([]string(nil), k.Scopes...)
			out = &k
		}
		return nil
	})
	return out, nil
}

func (r *apiKeyRepo) ListByCompany(_ context.Context, companyID int64, limit, offset int) ([]*entity.APIKey, int, error) {
	var all []*entity.APIKey
	_ = r.s.view(false, func(st *state) error {
		for _, k := range st.apiKeys {
			if k.CompanyID == companyID {
				k := k
				k.Scopes = append([]string(nil), k.Scopes...)
				all = append(all, &k)
			}
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= total {
		return []*entity.APIKey{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *apiKeyRepo) Update(_ context.Context, k *entity.APIKey) error {
	return r.s.view(false, func(st *state) error {
		old, ok := st.apiKeys[k.ID]
		if !ok || old.CompanyID != k.CompanyID {
			return domain.ErrAPIKeyNotFound
		}
		old.Name = k.Name
		old.Description = k.Description
		old.Enabled = k.Enabled
		old.Scopes = append([]string(nil), k.Scopes...)
		old.UpdatedAt = k.UpdatedAt
		st.apiKeys[k.ID] = old
		return nil
	})
}

func (r *apiKeyRepo) DeleteMany(_ context.Context, companyID int64, ids []int64) (int, error) {
	n := 0
	err := r.s.view(false, func(st *state) error {
		for _, id := range ids {
			if k, ok := st.apiKeys[id]; ok && k.CompanyID == companyID {
				delete(st.apiKeys, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

// ─── scopes ──────────────────────────────────────────────────────────────────

type scopeRepo struct {
	s *Store
}

func (r *scopeRepo) ListEnabled(_ context.Context) ([]*entity.Scope, error) {
	return r.collect(func(sc entity.Scope) bool { return sc.Enabled }), nil
}

func (r *scopeRepo) GetEnabledByKeys(_ context.Context, keys []string) ([]*entity.Scope, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	return r.collect(func(sc entity.Scope) bool { return sc.Enabled && want[sc.Key] }), nil
}

func (r *scopeRepo) collect(match func(entity.Scope) bool) []*entity.Scope {
	out := []*entity.Scope{}
	_ = r.s.view(false, func(st *state) error {
		for _, sc := range st.scopes {
			if match(sc) {
				sc := sc
				out = append(out, &sc)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
