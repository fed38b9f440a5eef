package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventticketing/internal/domain"
)

var (
	errNoTx          = errors.New("no transaction in context")
	errDuplicateCode = errors.New("duplicate ticket code")
)

type eventRepository struct{ s *Store }

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	cp := *e
	if t := txFromContext(ctx); t != nil {
		t.events[e.ID] = &cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[e.ID] = &cp
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if t := txFromContext(ctx); t != nil {
		if e, ok := t.events[id]; ok {
			cp := *e
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *eventRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	t := txFromContext(ctx)
	if t == nil {
		return nil, fmt.Errorf("lock event %s: %w", id, errNoTx)
	}
	if err := r.s.lock(ctx, t, "event:"+id); err != nil {
		return nil, fmt.Errorf("lock event %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *eventRepository) UpdateAvailableSeats(ctx context.Context, id string, availableSeats int) error {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if availableSeats < 0 || availableSeats > e.TotalSeats {
		return fmt.Errorf("update available seats for %s: %w", id, domain.ErrLedgerOverflow)
	}
	e.AvailableSeats = availableSeats
	if t := txFromContext(ctx); t != nil {
		t.events[id] = e
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events[id] = e
	return nil
}

type ticketRepository struct{ s *Store }

func (r *ticketRepository) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.s.WithTx(ctx, func(ctx context.Context) error {
		t := txFromContext(ctx)
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
		for _, tk := range tickets {
			if _, exists := r.s.codes[tk.TicketCode]; exists {
				return fmt.Errorf("insert tickets: %w", errDuplicateCode)
			}
			cp := *tk
			t.tickets[tk.ID] = &cp
			t.newIDs = append(t.newIDs, tk.ID)
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if t := txFromContext(ctx); t != nil {
		if tk, ok := t.tickets[id]; ok {
			cp := *tk
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	tk, ok := r.s.tickets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *tk
	return &cp, nil
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	t := txFromContext(ctx)
	if t == nil {
		return nil, fmt.Errorf("lock ticket %s: %w", id, errNoTx)
	}
	if err := r.s.lock(ctx, t, "ticket:"+id); err != nil {
		return nil, fmt.Errorf("lock ticket %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	tk, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tk.Status = status
	if t := txFromContext(ctx); t != nil {
		t.tickets[id] = tk
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tickets[id] = tk
	return nil
}

func (r *ticketRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	byID := make(map[string]*domain.Ticket)
	r.s.mu.RLock()
	for id, tk := range r.s.tickets {
		if tk.EventID == eventID {
			byID[id] = tk
		}
	}
	r.s.mu.RUnlock()
	if t := txFromContext(ctx); t != nil {
		for id, tk := range t.tickets {
			if tk.EventID == eventID {
				byID[id] = tk
			}
		}
	}
	out := make([]*domain.Ticket, 0, len(byID))
	for _, tk := range byID {
		cp := *tk
		out = append(out, &cp)
	}
	sortTickets(out)
	return out, nil
}

type checkInRepository struct{ s *Store }

func (r *checkInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	if _, err := r.GetByTicketID(ctx, c.TicketID); err == nil {
		return domain.ErrAlreadyCheckedIn
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	cp := *c
	if t := txFromContext(ctx); t != nil {
		t.checkIns[c.TicketID] = &cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.checkIns[c.TicketID]; exists {
		return domain.ErrAlreadyCheckedIn
	}
	r.s.checkIns[c.TicketID] = &cp
	return nil
}

func (r *checkInRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.CheckIn, error) {
	if t := txFromContext(ctx); t != nil {
		if c, ok := t.checkIns[ticketID]; ok {
			cp := *c
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.checkIns[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
