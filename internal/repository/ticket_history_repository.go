package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, action, actor_id, actor_role, from_status, to_status, comment, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		history.TicketID,
		history.Action,
		history.ActorID,
		history.ActorRole,
		history.FromStatus,
		history.ToStatus,
		history.Comment,
		history.CreatedAt,
	).Scan(&history.ID)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, action, actor_id, actor_role, from_status, to_status, comment, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.Action,
			&history.ActorID,
			&history.ActorRole,
			&history.FromStatus,
			&history.ToStatus,
			&history.Comment,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}

type memoryTicketHistoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64][]domain.TicketHistory
}

// NewMemoryTicketHistoryRepository builds an in-memory audit log.
func NewMemoryTicketHistoryRepository() TicketHistoryRepository {
	return &memoryTicketHistoryRepository{entries: make(map[int64][]domain.TicketHistory)}
}

func (r *memoryTicketHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	history.ID = r.nextID
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *memoryTicketHistoryRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TicketHistory(nil), r.entries[ticketID]...), nil
}
