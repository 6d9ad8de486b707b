package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// TicketFilter narrows ticket listings. Zero values match everything.
type TicketFilter struct {
	StudentID   *int64
	RepairmanID *int64
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	Priorities  []domain.TicketPriority
	Keyword     string
	RatedOnly   bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Matches evaluates the filter against a single ticket.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.StudentID != nil && t.StudentID != *f.StudentID {
		return false
	}
	if f.RepairmanID != nil && !t.IsAssignedTo(*f.RepairmanID) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, t.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if f.RatedOnly && t.Rating == nil {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if keyword := strings.ToLower(strings.TrimSpace(f.Keyword)); keyword != "" {
		haystacks := []string{t.Title, t.Description, t.Location, t.StudentName}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), keyword) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, candidate := range set {
		if candidate == v {
			return true
		}
	}
	return false
}

// MutateFunc receives the current ticket and returns its replacement, or
// nil to delete it. Returning an error aborts the mutation with nothing
// written.
type MutateFunc func(current domain.Ticket) (*domain.Ticket, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Mutate performs an atomic read-modify-write on one ticket. Concurrent
	// calls for the same id are serialized; calls for different ids are not.
	Mutate(ctx context.Context, id int64, fn MutateFunc) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, category, location, description, priority, status,
               student_id, student_name, contact_phone, repairman_id, images,
               estimated_completion, rejection_reason, close_reason, repair_notes, rating, feedback,
               created_at, updated_at, assigned_at, completed_at, closed_at, evaluated_at`

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, category, location, description, priority, status,
            student_id, student_name, contact_phone, images, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Category,
		ticket.Location,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.StudentID,
		ticket.StudentName,
		ticket.ContactPhone,
		nonNilImages(ticket.Images),
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return fetchSingle(ctx, r.pool, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.RepairmanID != nil {
		args = append(args, *filter.RepairmanID)
		clauses = append(clauses, fmt.Sprintf("repairman_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", filter.Statuses, &args))
	}
	if len(filter.Categories) > 0 {
		clauses = append(clauses, inClause("category", filter.Categories, &args))
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, inClause("priority", filter.Priorities, &args))
	}
	if filter.RatedOnly {
		clauses = append(clauses, "rating IS NOT NULL")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		args = append(args, containsPattern(keyword))
		p := fmt.Sprintf(`$%d ESCAPE '\'`, len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(location) LIKE %s OR LOWER(student_name) LIKE %s)",
			p, p, p, p))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Mutate(ctx context.Context, id int64, fn MutateFunc) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := fetchSingle(ctx, tx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}

	if next == nil {
		if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id); err != nil {
			return nil, err
		}
	} else {
		const query = `
            UPDATE tickets SET status=$1, repairman_id=$2, estimated_completion=$3, rejection_reason=$4,
                close_reason=$5, repair_notes=$6, rating=$7, feedback=$8, updated_at=$9,
                assigned_at=$10, completed_at=$11, closed_at=$12, evaluated_at=$13
            WHERE id=$14`
		if _, err := tx.Exec(ctx, query,
			next.Status,
			next.RepairmanID,
			next.EstimatedCompletion,
			next.RejectionReason,
			next.CloseReason,
			next.RepairNotes,
			next.Rating,
			next.Feedback,
			next.UpdatedAt,
			next.AssignedAt,
			next.CompletedAt,
			next.ClosedAt,
			next.EvaluatedAt,
			id,
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return next, nil
}

func fetchSingle(ctx context.Context, q rowQuerier, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Category,
		&ticket.Location,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.StudentID,
		&ticket.StudentName,
		&ticket.ContactPhone,
		&ticket.RepairmanID,
		&ticket.Images,
		&ticket.EstimatedCompletion,
		&ticket.RejectionReason,
		&ticket.CloseReason,
		&ticket.RepairNotes,
		&ticket.Rating,
		&ticket.Feedback,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.CompletedAt,
		&ticket.ClosedAt,
		&ticket.EvaluatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func inClause[T ~string](column string, values []T, args *[]any) string {
	placeholders := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, string(v))
		placeholders[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ","))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching keyword literally, the same
// way Matches compares substrings.
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
