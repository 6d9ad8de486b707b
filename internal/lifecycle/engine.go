// Package lifecycle enforces the repair order state machine.
//
// The Engine is pure: it receives a ticket value, the caller and the
// requested transition, and returns the next ticket value. Persisting the
// result is the caller's job, which is what lets the store commit all field
// updates of a transition at once or none of them.
package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// Transition is a requested lifecycle operation with its arguments.
type Transition struct {
	Action              domain.TicketAction
	RepairmanID         int64
	Reason              string
	Notes               string
	EstimatedCompletion *time.Time
	Rating              int
	Feedback            string
}

// Assign moves a pending ticket to processing under the given repairman.
func Assign(repairmanID int64) Transition {
	return Transition{Action: domain.ActionAssign, RepairmanID: repairmanID}
}

// Reject refuses a pending ticket.
func Reject(reason string) Transition {
	return Transition{Action: domain.ActionReject, Reason: reason}
}

// Start records the repairman's estimated completion time.
func Start(estimatedCompletion *time.Time) Transition {
	return Transition{Action: domain.ActionStart, EstimatedCompletion: estimatedCompletion}
}

// Complete hands the ticket back to the student for evaluation.
func Complete(notes string) Transition {
	return Transition{Action: domain.ActionComplete, Notes: notes}
}

// Evaluate attaches the student's rating and feedback.
func Evaluate(rating int, feedback string) Transition {
	return Transition{Action: domain.ActionEvaluate, Rating: rating, Feedback: feedback}
}

// Delete removes a pending ticket.
func Delete() Transition {
	return Transition{Action: domain.ActionDelete}
}

// AdminClose closes an in-flight or completed ticket administratively.
func AdminClose(reason string) Transition {
	return Transition{Action: domain.ActionAdminClose, Reason: reason}
}

// Note replaces the repair notes without changing the status.
func Note(notes string) Transition {
	return Transition{Action: domain.ActionNote, Notes: notes}
}

// Outcome is the result of a validated transition.
type Outcome struct {
	Ticket  domain.Ticket
	From    domain.TicketStatus
	To      domain.TicketStatus
	Removed bool
}

// EvaluationGuard decides whether a ticket may still receive an evaluation.
type EvaluationGuard interface {
	CheckEvaluation(ticket *domain.Ticket) error
}

type ownership int

const (
	ownerNone ownership = iota
	ownerStudent
	ownerRepairman
)

type rule struct {
	role  domain.Role
	owner ownership
	from  []domain.TicketStatus
	to    domain.TicketStatus
}

var rules = map[domain.TicketAction]rule{
	domain.ActionAssign: {
		role: domain.RoleAdmin,
		from: []domain.TicketStatus{domain.TicketStatusPending},
		to:   domain.TicketStatusProcessing,
	},
	domain.ActionReject: {
		role: domain.RoleAdmin,
		from: []domain.TicketStatus{domain.TicketStatusPending},
		to:   domain.TicketStatusRejected,
	},
	domain.ActionStart: {
		role:  domain.RoleRepairman,
		owner: ownerRepairman,
		from:  []domain.TicketStatus{domain.TicketStatusProcessing},
		to:    domain.TicketStatusProcessing,
	},
	domain.ActionComplete: {
		role:  domain.RoleRepairman,
		owner: ownerRepairman,
		from:  []domain.TicketStatus{domain.TicketStatusProcessing},
		to:    domain.TicketStatusToBeEvaluated,
	},
	domain.ActionEvaluate: {
		role:  domain.RoleStudent,
		owner: ownerStudent,
		from:  []domain.TicketStatus{domain.TicketStatusToBeEvaluated},
		to:    domain.TicketStatusCompleted,
	},
	domain.ActionDelete: {
		role:  domain.RoleStudent,
		owner: ownerStudent,
		from:  []domain.TicketStatus{domain.TicketStatusPending},
	},
	// pending is excluded: a closed ticket must carry a repairman.
	domain.ActionAdminClose: {
		role: domain.RoleAdmin,
		from: []domain.TicketStatus{
			domain.TicketStatusProcessing,
			domain.TicketStatusToBeEvaluated,
			domain.TicketStatusCompleted,
		},
		to: domain.TicketStatusClosed,
	},
	domain.ActionNote: {
		role:  domain.RoleRepairman,
		owner: ownerRepairman,
		from: []domain.TicketStatus{
			domain.TicketStatusProcessing,
			domain.TicketStatusToBeEvaluated,
			domain.TicketStatusCompleted,
		},
	},
}

// Engine validates and applies transitions.
type Engine struct {
	guard EvaluationGuard
}

// NewEngine builds an engine. A nil guard falls back to rejecting any
// second evaluation based on the rating field alone.
func NewEngine(guard EvaluationGuard) *Engine {
	if guard == nil {
		guard = ratingGuard{}
	}
	return &Engine{guard: guard}
}

// Allowed reports which actions the actor may currently take on the ticket.
// Portals use it to decide which buttons to render.
func (e *Engine) Allowed(ticket domain.Ticket, actor domain.Actor) []domain.TicketAction {
	actions := make([]domain.TicketAction, 0, 2)
	for _, action := range actionOrder {
		trial := Transition{Action: action, RepairmanID: 1, Reason: "trial", Rating: 5}
		if _, err := e.Apply(ticket, actor, trial, ticket.UpdatedAt); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

var actionOrder = []domain.TicketAction{
	domain.ActionAssign,
	domain.ActionReject,
	domain.ActionStart,
	domain.ActionComplete,
	domain.ActionNote,
	domain.ActionEvaluate,
	domain.ActionDelete,
	domain.ActionAdminClose,
}

// Apply validates tr against the ticket and actor and returns the next state.
// Checks run in order: role, identity, evaluation guard, source state,
// arguments. The input ticket is never modified.
func (e *Engine) Apply(current domain.Ticket, actor domain.Actor, tr Transition, now time.Time) (Outcome, error) {
	if _, err := domain.Describe(current.Status); err != nil {
		return Outcome{}, err
	}
	r, ok := rules[tr.Action]
	if !ok {
		return Outcome{}, apperrors.NewValidationError("unknown action", map[string]any{"action": tr.Action})
	}
	if actor.Role != r.role {
		return Outcome{}, apperrors.NewForbidden(string(r.role) + " role required to " + string(tr.Action))
	}
	if err := checkOwner(&current, actor, r.owner); err != nil {
		return Outcome{}, err
	}
	if tr.Action == domain.ActionEvaluate {
		if err := e.guard.CheckEvaluation(&current); err != nil {
			return Outcome{}, err
		}
	}
	if !statusIn(current.Status, r.from) {
		requested := r.to
		if requested == "" {
			requested = current.Status
		}
		return Outcome{}, apperrors.NewIllegalTransition(string(current.Status), string(requested), string(tr.Action))
	}

	next := current.Clone()
	out := Outcome{From: current.Status, To: current.Status}
	switch tr.Action {
	case domain.ActionAssign:
		if tr.RepairmanID <= 0 {
			return Outcome{}, apperrors.NewValidationError("repairmanId required", nil)
		}
		id := tr.RepairmanID
		next.RepairmanID = &id
		next.AssignedAt = setOnce(next.AssignedAt, now)
	case domain.ActionReject:
		reason := strings.TrimSpace(tr.Reason)
		if reason == "" {
			return Outcome{}, apperrors.NewValidationError("rejection reason required", nil)
		}
		next.RejectionReason = reason
	case domain.ActionStart:
		if tr.EstimatedCompletion != nil {
			eta := *tr.EstimatedCompletion
			next.EstimatedCompletion = &eta
		}
	case domain.ActionComplete:
		next.RepairNotes = strings.TrimSpace(tr.Notes)
		next.CompletedAt = setOnce(next.CompletedAt, now)
	case domain.ActionEvaluate:
		if tr.Rating < 1 || tr.Rating > 5 {
			return Outcome{}, apperrors.NewInvalidRating(tr.Rating)
		}
		rating := tr.Rating
		next.Rating = &rating
		next.Feedback = strings.TrimSpace(tr.Feedback)
		next.EvaluatedAt = setOnce(next.EvaluatedAt, now)
	case domain.ActionDelete:
		out.Removed = true
	case domain.ActionAdminClose:
		next.CloseReason = strings.TrimSpace(tr.Reason)
		next.ClosedAt = setOnce(next.ClosedAt, now)
	case domain.ActionNote:
		next.RepairNotes = strings.TrimSpace(tr.Notes)
	}
	if r.to != "" {
		next.Status = r.to
	}
	next.UpdatedAt = now
	out.Ticket = next
	out.To = next.Status
	return out, nil
}

func checkOwner(ticket *domain.Ticket, actor domain.Actor, owner ownership) error {
	switch owner {
	case ownerStudent:
		if ticket.StudentID != actor.ID {
			return apperrors.NewForbidden("only the reporting student may do this")
		}
	case ownerRepairman:
		// An unassigned ticket can only be pending or rejected, which the
		// state check reports as an illegal transition.
		if ticket.RepairmanID != nil && *ticket.RepairmanID != actor.ID {
			return apperrors.NewForbidden("ticket is assigned to another repairman")
		}
	}
	return nil
}

func statusIn(status domain.TicketStatus, set []domain.TicketStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func setOnce(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	t := now
	return &t
}

type ratingGuard struct{}

func (ratingGuard) CheckEvaluation(ticket *domain.Ticket) error {
	if ticket.Rating != nil {
		return apperrors.NewAlreadyEvaluated(ticket.ID)
	}
	return nil
}
