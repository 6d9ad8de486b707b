package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority"`
	ContactPhone string   `json:"contactPhone"`
	Images       []string `json:"images"`
}

// EvaluateRequest payload. The student portal sends score/comment, older
// clients rating/feedback.
type EvaluateRequest struct {
	Score    *int   `json:"score"`
	Rating   *int   `json:"rating"`
	Comment  string `json:"comment"`
	Feedback string `json:"feedback"`
}

// Resolve returns the effective rating and feedback text. A missing rating
// is reported as zero so it fails range validation.
func (r EvaluateRequest) Resolve() (int, string) {
	rating := 0
	switch {
	case r.Score != nil:
		rating = *r.Score
	case r.Rating != nil:
		rating = *r.Rating
	}
	text := r.Comment
	if text == "" {
		text = r.Feedback
	}
	return rating, text
}

// AssignRequest payload.
type AssignRequest struct {
	RepairmanID int64 `json:"repairmanId"`
}

// AdminStatusRequest payload for reject and close.
type AdminStatusRequest struct {
	Status       string `json:"status"`
	ProcessNotes string `json:"processNotes"`
}

// TaskStatusRequest payload for a repairman starting work.
type TaskStatusRequest struct {
	Status                  string `json:"status"`
	EstimatedCompletionTime string `json:"estimatedCompletionTime"`
}

// TaskCompleteRequest payload.
type TaskCompleteRequest struct {
	Status       string `json:"status"`
	ProcessNotes string `json:"processNotes"`
}

// TaskNotesRequest payload.
type TaskNotesRequest struct {
	Notes string `json:"notes"`
}

// TicketResponse is the ticket as rendered by every portal.
type TicketResponse struct {
	ID                  int64                 `json:"id"`
	Title               string                `json:"title"`
	Category            domain.TicketCategory `json:"category"`
	CategoryLabel       string                `json:"categoryLabel"`
	Location            string                `json:"location"`
	Description         string                `json:"description"`
	Priority            domain.TicketPriority `json:"priority"`
	PriorityLabel       string                `json:"priorityLabel"`
	Status              domain.TicketStatus   `json:"status"`
	StatusLabel         string                `json:"statusLabel"`
	StatusColor         string                `json:"statusColor"`
	StudentID           int64                 `json:"studentId"`
	StudentName         string                `json:"studentName"`
	ContactPhone        string                `json:"contactPhone,omitempty"`
	RepairmanID         *int64                `json:"repairmanId"`
	RepairmanName       string                `json:"repairmanName,omitempty"`
	Images              []string              `json:"images"`
	EstimatedCompletion *time.Time            `json:"estimatedCompletionTime"`
	RejectionReason     string                `json:"rejectionReason,omitempty"`
	CloseReason         string                `json:"closeReason,omitempty"`
	RepairNotes         string                `json:"repairNotes,omitempty"`
	Rating              *int                  `json:"rating"`
	Feedback            string                `json:"feedback,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
	AssignedAt          *time.Time            `json:"assignedAt"`
	CompletedAt         *time.Time            `json:"completedAt"`
	ClosedAt            *time.Time            `json:"closedAt"`
	EvaluatedAt         *time.Time            `json:"evaluatedAt"`
	AllowedActions      []domain.TicketAction `json:"allowedActions"`
	History             []HistoryResponse     `json:"history,omitempty"`
}

// TaskResponse adds the repairman portal's timing fields.
type TaskResponse struct {
	TicketResponse
	DurationMinutes int64 `json:"durationMinutes"`
	Overdue         bool  `json:"overdue"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	Action     domain.TicketAction `json:"action"`
	ActorID    int64               `json:"actorId"`
	ActorRole  domain.Role         `json:"actorRole"`
	FromStatus domain.TicketStatus `json:"fromStatus,omitempty"`
	ToStatus   domain.TicketStatus `json:"toStatus,omitempty"`
	Comment    string              `json:"comment,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// PageResponse wraps a list view.
type PageResponse[T any] struct {
	List     []T `json:"list"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
