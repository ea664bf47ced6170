package account

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	mu       sync.Mutex
	acc      Account
	invoices map[string]Invoice
}

// MemoryStore keeps accounts in process memory. Mutations of one account are
// serialized by that account's mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, acc *Account) error {
	if acc == nil || acc.Name == "" {
		return ErrInvalidAccountArg
	}
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	if acc.CreationTime.IsZero() {
		acc.CreationTime = time.Now()
	}
	acc.Recount()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return ErrInvalidAccountArg
	}
	s.accounts[acc.ID] = &memoryEntry{acc: acc.clone(), invoices: make(map[string]Invoice)}
	return nil
}

func (s *MemoryStore) entry(id string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Account, error) {
	e, err := s.entry(id)
	if err != nil {
		return Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acc.clone(), nil
}

func (s *MemoryStore) FindBySubscription(_ context.Context, ref SubscriptionRef) (Account, error) {
	if ref.IsZero() {
		return Account{}, ErrNotFound
	}
	s.mu.RLock()
	entries := make([]*memoryEntry, 0, len(s.accounts))
	for _, e := range s.accounts {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		match := e.acc.Subscription == ref
		acc := e.acc.clone()
		e.mu.Unlock()
		if match {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Account) error) (Account, error) {
	e, err := s.entry(id)
	if err != nil {
		return Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.acc.clone()
	if err := fn(&next); err != nil {
		return Account{}, err
	}
	next.ID = e.acc.ID
	next.Recount()
	next.Version = e.acc.Version + 1
	e.acc = next
	return next.clone(), nil
}

// UpsertInvoice stores inv and recounts the account's invoices under the
// account's lock.
func (s *MemoryStore) UpsertInvoice(_ context.Context, accountID string, inv Invoice) (bool, error) {
	e, err := s.entry(accountID)
	if err != nil {
		return false, err
	}
	inv.AccountID = accountID

	e.mu.Lock()
	defer e.mu.Unlock()
	_, existed := e.invoices[inv.ID]
	e.invoices[inv.ID] = inv
	if e.acc.InvoicesColCount != len(e.invoices) {
		next := e.acc.clone()
		next.InvoicesColCount = len(e.invoices)
		next.Version = e.acc.Version + 1
		e.acc = next
	}
	return !existed, nil
}

// Invoices returns the account's invoices ordered by creation time.
func (s *MemoryStore) Invoices(accountID string) []Invoice {
	e, err := s.entry(accountID)
	if err != nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Invoice, 0, len(e.invoices))
	for _, inv := range e.invoices {
		out = append(out, inv)
	}
	slices.SortFunc(out, func(a, b Invoice) int {
		return cmp.Or(cmp.Compare(a.Created, b.Created), strings.Compare(a.ID, b.ID))
	})
	return out
}

// MemoryUsers is an in-memory user directory.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUsers(users ...User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MemoryUsers) Get(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryUsers) SetCustomerID(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.StripeCustomerID = customerID
	m.users[userID] = u
	return nil
}

func (m *MemoryUsers) Touch(_ context.Context, id, email, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.ID = id
	if email != "" {
		u.Email = email
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	u.LastLoginTime = time.Now()
	m.users[id] = u
	return nil
}

// MemoryPlans is an in-memory plan catalogue.
type MemoryPlans struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

func NewMemoryPlans(plans ...Plan) *MemoryPlans {
	m := &MemoryPlans{plans: make(map[string]Plan, len(plans))}
	for _, p := range plans {
		m.Put(p)
	}
	return m
}

func (m *MemoryPlans) Put(p Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.AllowList = slices.Clone(p.AllowList)
	m.plans[p.ID] = p
}

func (m *MemoryPlans) Get(_ context.Context, id string) (Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return Plan{}, ErrNotFound
	}
	p.AllowList = slices.Clone(p.AllowList)
	return p, nil
}
