package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/repair-service/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. The map is guarded
// by mu; each ticket additionally has its own lock so Mutate on one id does
// not hold up reads or mutations of other tickets.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	nextID  int64
	tickets map[int64]*domain.Ticket
	locks   map[int64]*sync.Mutex
}

// NewMemoryTicketRepository builds an in-memory repository holding a copy of seed.
func NewMemoryTicketRepository(seed []domain.Ticket) TicketRepository {
	r := &memoryTicketRepository{
		tickets: make(map[int64]*domain.Ticket, len(seed)),
		locks:   make(map[int64]*sync.Mutex, len(seed)),
	}
	for i := range seed {
		t := seed[i].Clone()
		if t.ID == 0 {
			r.nextID++
			t.ID = r.nextID
		} else if t.ID > r.nextID {
			r.nextID = t.ID
		}
		r.tickets[t.ID] = &t
		r.locks[t.ID] = &sync.Mutex{}
	}
	return r
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	stored := ticket.Clone()
	r.tickets[stored.ID] = &stored
	r.locks[stored.ID] = &sync.Mutex{}
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := t.Clone()
	return &out, nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.Matches(t) {
			result = append(result, t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *memoryTicketRepository) Mutate(ctx context.Context, id int64, fn MutateFunc) (*domain.Ticket, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Re-read under the ticket lock; a concurrent delete may have won.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(*current)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if next == nil {
		delete(r.tickets, id)
		delete(r.locks, id)
		return nil, nil
	}
	stored := next.Clone()
	stored.ID = id
	r.tickets[id] = &stored
	out := stored.Clone()
	return &out, nil
}
