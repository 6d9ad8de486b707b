package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// FeedbackService owns the evaluation guard and the views derived from ratings.
type FeedbackService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
}

// FeedbackEntry is one rated ticket as shown in the admin feedback list.
type FeedbackEntry struct {
	TicketID      int64     `json:"ticketId"`
	Title         string    `json:"title"`
	Rating        int       `json:"rating"`
	Feedback      string    `json:"feedback"`
	StudentID     int64     `json:"studentId"`
	StudentName   string    `json:"studentName"`
	RepairmanID   int64     `json:"repairmanId"`
	RepairmanName string    `json:"repairmanName"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}

// FeedbackQuery filters the admin feedback list.
type FeedbackQuery struct {
	RepairmanID *int64
	Rating      *int
	Page        int
	PageSize    int
}

// RepairmanRating aggregates the ratings of one repairman.
type RepairmanRating struct {
	RepairmanID     int64   `json:"id"`
	Name            string  `json:"name"`
	AverageRating   float64 `json:"rating"`
	RatedOrders     int     `json:"ratedOrders"`
	CompletedOrders int     `json:"completedOrders"`
}

// NewFeedbackService builds the service.
func NewFeedbackService(tickets repository.TicketRepository, users repository.UserRepository) *FeedbackService {
	return &FeedbackService{tickets: tickets, users: users}
}

// CheckEvaluation reports AlreadyEvaluated once a rating exists.
func (s *FeedbackService) CheckEvaluation(ticket *domain.Ticket) error {
	if ticket.Rating != nil {
		return apperrors.NewAlreadyEvaluated(ticket.ID)
	}
	return nil
}

// ListFeedback returns rated tickets, most recently evaluated first.
func (s *FeedbackService) ListFeedback(ctx context.Context, q FeedbackQuery) (Page[FeedbackEntry], error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{RatedOnly: true, RepairmanID: q.RepairmanID})
	if err != nil {
		return Page[FeedbackEntry]{}, storeError(err)
	}
	names, err := s.repairmanNames(ctx)
	if err != nil {
		return Page[FeedbackEntry]{}, err
	}

	entries := make([]FeedbackEntry, 0, len(tickets))
	for _, t := range tickets {
		if q.Rating != nil && *t.Rating != *q.Rating {
			continue
		}
		entry := FeedbackEntry{
			TicketID:    t.ID,
			Title:       t.Title,
			Rating:      *t.Rating,
			Feedback:    t.Feedback,
			StudentID:   t.StudentID,
			StudentName: t.StudentName,
		}
		if t.RepairmanID != nil {
			entry.RepairmanID = *t.RepairmanID
			entry.RepairmanName = names[*t.RepairmanID]
		}
		if t.EvaluatedAt != nil {
			entry.EvaluatedAt = *t.EvaluatedAt
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EvaluatedAt.Equal(entries[j].EvaluatedAt) {
			return entries[i].EvaluatedAt.After(entries[j].EvaluatedAt)
		}
		return entries[i].TicketID < entries[j].TicketID
	})
	return Paginate(entries, q.Page, q.PageSize), nil
}

// RepairmanRatings ranks every repairman by average rating. Repairmen
// without ratings are listed last with a zero average.
func (s *FeedbackService) RepairmanRatings(ctx context.Context) ([]RepairmanRating, error) {
	repairmen, err := s.users.ListByRole(ctx, domain.RoleRepairman)
	if err != nil {
		return nil, storeError(err)
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, storeError(err)
	}
	return rankRepairmen(repairmen, tickets), nil
}

func rankRepairmen(repairmen []domain.User, tickets []domain.Ticket) []RepairmanRating {
	type acc struct {
		sum, rated, completed int
	}
	totals := make(map[int64]*acc, len(repairmen))
	for _, r := range repairmen {
		totals[r.ID] = &acc{}
	}
	for _, t := range tickets {
		if t.RepairmanID == nil {
			continue
		}
		a, ok := totals[*t.RepairmanID]
		if !ok {
			continue
		}
		if t.CompletedAt != nil {
			a.completed++
		}
		if t.Rating != nil {
			a.sum += *t.Rating
			a.rated++
		}
	}

	out := make([]RepairmanRating, 0, len(repairmen))
	for _, r := range repairmen {
		a := totals[r.ID]
		entry := RepairmanRating{RepairmanID: r.ID, Name: r.Name, RatedOrders: a.rated, CompletedOrders: a.completed}
		if a.rated > 0 {
			entry.AverageRating = roundTenth(float64(a.sum) / float64(a.rated))
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		if out[i].CompletedOrders != out[j].CompletedOrders {
			return out[i].CompletedOrders > out[j].CompletedOrders
		}
		return out[i].RepairmanID < out[j].RepairmanID
	})
	return out
}

func (s *FeedbackService) repairmanNames(ctx context.Context) (map[int64]string, error) {
	names := map[int64]string{}
	if s.users == nil {
		return names, nil
	}
	repairmen, err := s.users.ListByRole(ctx, domain.RoleRepairman)
	if err != nil {
		return nil, storeError(err)
	}
	for _, r := range repairmen {
		names[r.ID] = r.Name
	}
	return names, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
