package domain

import "time"

// TicketStatus enumerates lifecycle states for repair orders.
type TicketStatus string

const (
	TicketStatusPending       TicketStatus = "pending"
	TicketStatusProcessing    TicketStatus = "processing"
	TicketStatusToBeEvaluated TicketStatus = "to_be_evaluated"
	TicketStatusCompleted     TicketStatus = "completed"
	TicketStatusClosed        TicketStatus = "closed"
	TicketStatusRejected      TicketStatus = "rejected"
)

// TicketCategory enumerates the kinds of repair a student can report.
type TicketCategory string

const (
	CategoryWaterAndElectricity TicketCategory = "waterAndElectricity"
	CategoryNetworkIssues       TicketCategory = "networkIssues"
	CategoryFurnitureRepair     TicketCategory = "furnitureRepair"
	CategoryApplianceIssues     TicketCategory = "applianceIssues"
	CategoryPublicFacilities    TicketCategory = "publicFacilities"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Ticket is the aggregate for a reported maintenance issue.
type Ticket struct {
	ID           int64
	Title        string
	Category     TicketCategory
	Location     string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	StudentID    int64
	StudentName  string
	ContactPhone string
	RepairmanID  *int64
	Images       []string

	EstimatedCompletion *time.Time
	RejectionReason     string
	CloseReason         string
	RepairNotes         string
	Rating              *int
	Feedback            string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	AssignedAt  *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time
	EvaluatedAt *time.Time
}

// Clone returns a copy that shares no mutable state with t.
func (t Ticket) Clone() Ticket {
	out := t
	if t.Images != nil {
		out.Images = append([]string(nil), t.Images...)
	}
	out.RepairmanID = cloneInt64(t.RepairmanID)
	out.Rating = cloneInt(t.Rating)
	out.EstimatedCompletion = cloneTime(t.EstimatedCompletion)
	out.AssignedAt = cloneTime(t.AssignedAt)
	out.CompletedAt = cloneTime(t.CompletedAt)
	out.ClosedAt = cloneTime(t.ClosedAt)
	out.EvaluatedAt = cloneTime(t.EvaluatedAt)
	return out
}

// IsAssignedTo reports whether the repairman owns the ticket.
func (t *Ticket) IsAssignedTo(repairmanID int64) bool {
	return t.RepairmanID != nil && *t.RepairmanID == repairmanID
}

// IsTerminal reports whether no further transition is permitted.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
