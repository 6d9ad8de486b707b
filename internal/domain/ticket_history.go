package domain

import "time"

// TicketAction names a role-gated lifecycle operation.
type TicketAction string

const (
	ActionCreate     TicketAction = "create"
	ActionAssign     TicketAction = "assign"
	ActionReject     TicketAction = "reject"
	ActionStart      TicketAction = "start"
	ActionComplete   TicketAction = "complete"
	ActionEvaluate   TicketAction = "evaluate"
	ActionDelete     TicketAction = "delete"
	ActionAdminClose TicketAction = "admin_close"
	ActionNote       TicketAction = "note"
)

// TicketHistory is an immutable audit trail entry for one committed transition.
type TicketHistory struct {
	ID         int64
	TicketID   int64
	Action     TicketAction
	ActorID    int64
	ActorRole  Role
	FromStatus TicketStatus
	ToStatus   TicketStatus
	Comment    string
	CreatedAt  time.Time
}
