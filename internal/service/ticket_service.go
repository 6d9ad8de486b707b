package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

const maxImages = 9

// TicketService is the authoritative owner of ticket mutation. Every
// lifecycle change goes through Apply, which runs the transition engine
// inside the repository's per-ticket atomic mutate.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	engine     *lifecycle.Engine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Engine      *lifecycle.Engine
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Category     domain.TicketCategory
	Location     string
	Description  string
	Priority     domain.TicketPriority
	ContactPhone string
	Images       []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Clock,
	}
	if s.engine == nil {
		s.engine = lifecycle.NewEngine(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Engine exposes the transition engine so read paths can report allowed actions.
func (s *TicketService) Engine() *lifecycle.Engine {
	return s.engine
}

// CreateTicket files a new repair order for a student.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can report repairs")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	studentName := ""
	if s.users != nil {
		user, err := s.users.GetByID(ctx, actor.ID)
		switch {
		case err == nil:
			studentName = user.Name
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewUnauthorized("student account not found")
		default:
			return nil, storeError(err)
		}
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:        input.Title,
		Category:     input.Category,
		Location:     input.Location,
		Description:  input.Description,
		Priority:     input.Priority,
		Status:       domain.TicketStatusPending,
		StudentID:    actor.ID,
		StudentName:  studentName,
		ContactPhone: input.ContactPhone,
		Images:       append([]string(nil), input.Images...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, storeError(err)
	}

	s.recordHistory(ctx, ticket.ID, actor, domain.ActionCreate, "", ticket.Status, "", now)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Category: ticket.Category,
			Priority: ticket.Priority,
			Location: ticket.Location,
			Title:    ticket.Title,
		},
	})
	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.Int64("student_id", actor.ID))
	return ticket, nil
}

// GetTicket returns a ticket by id without visibility checks.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketError(err, id)
	}
	return ticket, nil
}

// GetTicketForActor returns a ticket the actor is allowed to see: students
// their own, repairmen their assigned ones, admins all.
func (s *TicketService) GetTicketForActor(ctx context.Context, actor domain.Actor, id int64) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListTickets returns every ticket matching filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return tickets, nil
}

// Apply runs a lifecycle transition. Either every field update of the
// transition is committed or none is; a nil ticket is returned for delete.
func (s *TicketService) Apply(ctx context.Context, actor domain.Actor, id int64, tr lifecycle.Transition) (*domain.Ticket, error) {
	var outcome lifecycle.Outcome
	var at time.Time
	updated, err := s.tickets.Mutate(ctx, id, func(current domain.Ticket) (*domain.Ticket, error) {
		// Read the clock under the ticket lock so timestamps follow commit order.
		at = s.now()
		out, err := s.engine.Apply(current, actor, tr, at)
		if err != nil {
			return nil, err
		}
		outcome = out
		if out.Removed {
			return nil, nil
		}
		return &out.Ticket, nil
	})
	if err != nil {
		s.metrics.RecordTransition(string(tr.Action), false)
		return nil, ticketError(err, id)
	}
	s.metrics.RecordTransition(string(tr.Action), true)

	comment := strings.TrimSpace(tr.Reason + " " + tr.Notes)
	s.recordHistory(ctx, id, actor, tr.Action, outcome.From, outcome.To, comment, at)
	s.publishTransition(ctx, actor, id, tr, outcome)
	s.logger.Info("ticket transitioned",
		zap.Int64("ticket_id", id),
		zap.String("action", string(tr.Action)),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.Int64("actor_id", actor.ID))
	return updated, nil
}

// ListHistory returns the audit trail of a ticket visible to the actor.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, id int64) ([]domain.TicketHistory, error) {
	if _, err := s.GetTicketForActor(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

func (s *TicketService) recordHistory(ctx context.Context, ticketID int64, actor domain.Actor, action domain.TicketAction, from, to domain.TicketStatus, comment string, at time.Time) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		Action:     action,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
		CreatedAt:  at,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("record ticket history", zap.Int64("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishTransition(ctx context.Context, actor domain.Actor, id int64, tr lifecycle.Transition, outcome lifecycle.Outcome) {
	switch {
	case outcome.Removed:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketDeleted,
			TicketID: id,
			Actor:    eventActor(actor),
		})
		return
	case tr.Action == domain.ActionEvaluate:
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEvaluated,
			TicketID: id,
			Actor:    eventActor(actor),
			Payload: events.TicketEvaluatedPayload{
				RepairmanID: outcome.Ticket.RepairmanID,
				Rating:      tr.Rating,
			},
		})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitioned,
		TicketID: id,
		Actor:    eventActor(actor),
		Payload: events.TicketTransitionedPayload{
			Action:      tr.Action,
			OldStatus:   outcome.From,
			NewStatus:   outcome.To,
			RepairmanID: outcome.Ticket.RepairmanID,
			Comment:     strings.TrimSpace(tr.Reason),
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func validateCreate(input *TicketCreateInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	input.Description = strings.TrimSpace(input.Description)
	input.ContactPhone = strings.TrimSpace(input.ContactPhone)

	missing := []string{}
	if input.Title == "" {
		missing = append(missing, "title")
	}
	if input.Location == "" {
		missing = append(missing, "location")
	}
	if input.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	category, ok := domain.ParseCategory(string(input.Category))
	if !ok {
		return apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	input.Category = category
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	priority, ok := domain.ParsePriority(string(input.Priority))
	if !ok {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	input.Priority = priority
	if len(input.Images) > maxImages {
		return apperrors.NewValidationError("too many images", map[string]any{"max": maxImages})
	}
	return nil
}

func canView(actor domain.Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleStudent:
		return ticket.StudentID == actor.ID
	case domain.RoleRepairman:
		return ticket.IsAssignedTo(actor.ID)
	}
	return false
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{ID: actor.ID, Role: actor.Role}
}

func ticketError(err error, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return storeError(err)
}

// storeError classifies a repository failure for the caller.
func storeError(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewNetworkError("ticket store", err)
	}
	return apperrors.MapError(err)
}
