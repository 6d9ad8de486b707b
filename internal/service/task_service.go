package service

import (
	"context"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// TaskService exposes the repairman portal operations.
type TaskService struct {
	tickets *TicketService
	now     func() time.Time
}

// NewTaskService builds the service.
func NewTaskService(tickets *TicketService, clock func() time.Time) *TaskService {
	if clock == nil {
		clock = time.Now
	}
	return &TaskService{tickets: tickets, now: clock}
}

// TaskTiming is the derived timing of a task as shown to the repairman.
type TaskTiming struct {
	DurationMinutes int64 `json:"durationMinutes"`
	Overdue         bool  `json:"overdue"`
}

// Start records the estimated completion time of an assigned task.
func (s *TaskService) Start(ctx context.Context, actor domain.Actor, ticketID int64, rawStatus string, eta *time.Time) (*domain.Ticket, error) {
	if rawStatus != "" {
		if status, ok := domain.ParseStatus(rawStatus); !ok || status != domain.TicketStatusProcessing {
			return nil, apperrors.NewValidationError("status must be PROCESSING", map[string]any{"status": rawStatus})
		}
	}
	return s.tickets.Apply(ctx, actor, ticketID, lifecycle.Start(eta))
}

// Complete finishes the repair and hands the ticket to the student.
func (s *TaskService) Complete(ctx context.Context, actor domain.Actor, ticketID int64, rawStatus, notes string) (*domain.Ticket, error) {
	if rawStatus != "" {
		status, ok := domain.ParseStatus(rawStatus)
		// The worker portal sends COMPLETED for what is to_be_evaluated here.
		if !ok || (status != domain.TicketStatusCompleted && status != domain.TicketStatusToBeEvaluated) {
			return nil, apperrors.NewValidationError("status must be COMPLETED", map[string]any{"status": rawStatus})
		}
	}
	return s.tickets.Apply(ctx, actor, ticketID, lifecycle.Complete(notes))
}

// UpdateNotes replaces the repair notes of an assigned task.
func (s *TaskService) UpdateNotes(ctx context.Context, actor domain.Actor, ticketID int64, notes string) (*domain.Ticket, error) {
	return s.tickets.Apply(ctx, actor, ticketID, lifecycle.Note(notes))
}

// Timing derives the duration and overdue flag of a ticket.
func (s *TaskService) Timing(ticket *domain.Ticket) TaskTiming {
	return ComputeTiming(ticket, s.now())
}

// ComputeTiming measures from assignment to completion, or to now while the
// repair is still open.
func ComputeTiming(ticket *domain.Ticket, now time.Time) TaskTiming {
	var timing TaskTiming
	if ticket.AssignedAt != nil {
		end := now
		if ticket.CompletedAt != nil {
			end = *ticket.CompletedAt
		}
		if end.After(*ticket.AssignedAt) {
			timing.DurationMinutes = int64(end.Sub(*ticket.AssignedAt) / time.Minute)
		}
	}
	if ticket.EstimatedCompletion != nil && ticket.CompletedAt == nil && !ticket.Status.IsTerminal() {
		timing.Overdue = now.After(*ticket.EstimatedCompletion)
	}
	return timing
}
