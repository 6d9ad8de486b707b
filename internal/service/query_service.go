package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page is one window of an ordered result set.
type Page[T any] struct {
	List     []T `json:"list"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// TicketQuery is the search request of any portal list view.
type TicketQuery struct {
	Statuses    []domain.TicketStatus
	Categories  []domain.TicketCategory
	Priorities  []domain.TicketPriority
	Keyword     string
	StudentID   *int64
	RepairmanID *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// QueryService answers role-scoped ticket searches.
type QueryService struct {
	tickets repository.TicketRepository
}

// NewQueryService builds the service.
func NewQueryService(tickets repository.TicketRepository) *QueryService {
	return &QueryService{tickets: tickets}
}

// Search returns the page of tickets visible to actor that match q, newest
// first with ties broken by ascending id.
func (s *QueryService) Search(ctx context.Context, actor domain.Actor, q TicketQuery) (Page[domain.Ticket], error) {
	filter := repository.TicketFilter{
		Statuses:    q.Statuses,
		Categories:  q.Categories,
		Priorities:  q.Priorities,
		Keyword:     strings.TrimSpace(q.Keyword),
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
	}
	switch actor.Role {
	case domain.RoleStudent:
		id := actor.ID
		filter.StudentID = &id
	case domain.RoleRepairman:
		id := actor.ID
		filter.RepairmanID = &id
	case domain.RoleAdmin:
		filter.StudentID = q.StudentID
		filter.RepairmanID = q.RepairmanID
	default:
		return Page[domain.Ticket]{}, apperrors.NewForbidden("unknown role")
	}

	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return Page[domain.Ticket]{}, storeError(err)
	}
	return Paginate(tickets, q.Page, q.PageSize), nil
}

// Paginate slices items into the requested page after normalizing the
// page number and size.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	page, pageSize = normalizePage(page, pageSize)
	out := Page[T]{List: []T{}, Total: len(items), Page: page, PageSize: pageSize}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return out
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	out.List = items[start:end]
	return out
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
