// Package memory is a single-process store with the same locking contract as the
// Postgres repositories: GetByIDForUpdate holds a per-row mutex until the
// transaction ends, and writes made inside a transaction become visible to
// other callers only on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"eventticketing/internal/domain"
)

// Store holds committed state. Use its repository accessors to get the
// domain.*Repository implementations that share it.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	events   map[string]*domain.Event
	tickets  map[string]*domain.Ticket
	codes    map[string]string // ticket code -> ticket id
	checkIns map[string]*domain.CheckIn

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		events:   make(map[string]*domain.Event),
		tickets:  make(map[string]*domain.Ticket),
		codes:    make(map[string]string),
		checkIns: make(map[string]*domain.CheckIn),
		locks:    make(map[string]*sync.Mutex),
	}
}

// AddUser seeds the identity store.
func (s *Store) AddUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *Store) rowLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

type txKey struct{}

// tx stages writes until commit and remembers which row locks it holds.
type tx struct {
	held     map[string]*sync.Mutex
	order    []string
	events   map[string]*domain.Event
	tickets  map[string]*domain.Ticket
	newIDs   []string
	checkIns map[string]*domain.CheckIn
}

func newTx() *tx {
	return &tx{
		held:     make(map[string]*sync.Mutex),
		events:   make(map[string]*domain.Event),
		tickets:  make(map[string]*domain.Ticket),
		checkIns: make(map[string]*domain.CheckIn),
	}
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// lock acquires the row lock for key once per transaction. It gives up if ctx is
// done first, leaving the lock to whoever holds it.
func (s *Store) lock(ctx context.Context, t *tx, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	m := s.rowLock(key)
	if m.TryLock() {
		t.held[key] = m
		t.order = append(t.order, key)
		return nil
	}
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.held[key] = m
		t.order = append(t.order, key)
		return nil
	case <-ctx.Done():
		// The goroutine will still get the mutex; hand it straight back.
		go func() {
			<-acquired
			m.Unlock()
		}()
		return ctx.Err()
	}
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.held = nil
	t.order = nil
}

// WithTx implements domain.TxManager.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	t := newTx()
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ticketID := range t.checkIns {
		if _, exists := s.checkIns[ticketID]; exists {
			return domain.ErrAlreadyCheckedIn
		}
	}
	for _, id := range t.newIDs {
		tk := t.tickets[id]
		if owner, exists := s.codes[tk.TicketCode]; exists && owner != id {
			return errDuplicateCode
		}
	}

	for id, e := range t.events {
		s.events[id] = e
	}
	for id, tk := range t.tickets {
		s.tickets[id] = tk
		s.codes[tk.TicketCode] = id
	}
	for ticketID, c := range t.checkIns {
		s.checkIns[ticketID] = c
	}
	return nil
}

// Repositories returns the repository set backed by s.
func (s *Store) Repositories() (domain.EventRepository, domain.TicketRepository, domain.CheckInRepository, domain.UserRepository) {
	return &eventRepository{s: s}, &ticketRepository{s: s}, &checkInRepository{s: s}, &userRepository{s: s}
}

func sortTickets(ts []*domain.Ticket) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].BookedAt.Equal(ts[j].BookedAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].BookedAt.Before(ts[j].BookedAt)
	})
}
