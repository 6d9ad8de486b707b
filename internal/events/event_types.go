package events

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket.created"
	EventTicketTransitioned EventType = "ticket.transitioned"
	EventTicketEvaluated    EventType = "ticket.evaluated"
	EventTicketDeleted      EventType = "ticket.deleted"
)

// AllTypes lists every event type, for subscribers interested in all of them.
func AllTypes() []EventType {
	return []EventType{EventTicketCreated, EventTicketTransitioned, EventTicketEvaluated, EventTicketDeleted}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Location string                `json:"location"`
	Title    string                `json:"title"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	Action      domain.TicketAction `json:"action"`
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	RepairmanID *int64              `json:"repairman_id,omitempty"`
	Comment     string              `json:"comment,omitempty"`
}

// TicketEvaluatedPayload payload.
type TicketEvaluatedPayload struct {
	RepairmanID *int64 `json:"repairman_id,omitempty"`
	Rating      int    `json:"rating"`
}
