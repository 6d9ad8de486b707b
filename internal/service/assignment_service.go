package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// AssignmentService handles the administrator's dispatch decisions.
type AssignmentService struct {
	tickets *TicketService
	users   repository.UserRepository
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Tickets  *TicketService
	UserRepo repository.UserRepository
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{tickets: deps.Tickets, users: deps.UserRepo}
}

// AssignTicket hands a pending ticket to a repairman. The repairman must
// exist in the user directory.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, repairmanID int64) (*domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if repairmanID <= 0 {
		return nil, apperrors.NewValidationError("repairmanId required", nil)
	}
	repairman, err := s.users.GetByID(ctx, repairmanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("repairman", map[string]any{"repairman_id": repairmanID})
		}
		return nil, storeError(err)
	}
	if repairman.Role != domain.RoleRepairman {
		return nil, apperrors.NewNotFound("repairman", map[string]any{"repairman_id": repairmanID})
	}
	return s.tickets.Apply(ctx, actor, ticketID, lifecycle.Assign(repairmanID))
}

// UpdateStatus performs the administrator's status change. Only REJECTED and
// CLOSED can be requested directly; notes become the reason.
func (s *AssignmentService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID int64, rawStatus, notes string) (*domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": rawStatus})
	}
	switch status {
	case domain.TicketStatusRejected:
		return s.tickets.Apply(ctx, actor, ticketID, lifecycle.Reject(notes))
	case domain.TicketStatusClosed:
		return s.tickets.Apply(ctx, actor, ticketID, lifecycle.AdminClose(notes))
	}
	return nil, apperrors.NewValidationError("administrators may only reject or close tickets", map[string]any{
		"status":  strings.ToUpper(string(status)),
		"allowed": []string{"REJECTED", "CLOSED"},
	})
}

func requireAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
