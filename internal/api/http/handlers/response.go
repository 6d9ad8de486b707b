package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// respond writes the success envelope.
func respond(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"code": fiber.StatusOK, "message": "success", "data": data})
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, found := auth.PrincipalFromContext(c)
	if !found {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parseTicketQuery reads the shared list filters. Multi-valued filters are
// comma separated; enum values are case-insensitive.
func parseTicketQuery(c *fiber.Ctx) (service.TicketQuery, error) {
	q := service.TicketQuery{
		Keyword:  c.Query("keyword"),
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("pageSize"), 10),
	}
	for _, raw := range splitList(c.Query("status")) {
		status, valid := domain.ParseStatus(raw)
		if !valid {
			return q, apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		q.Statuses = append(q.Statuses, status)
	}
	for _, raw := range splitList(c.Query("category")) {
		category, valid := domain.ParseCategory(raw)
		if !valid {
			return q, apperrors.NewValidationError("unknown category", map[string]any{"category": raw})
		}
		q.Categories = append(q.Categories, category)
	}
	for _, raw := range splitList(c.Query("priority")) {
		priority, valid := domain.ParsePriority(raw)
		if !valid {
			return q, apperrors.NewValidationError("unknown priority", map[string]any{"priority": raw})
		}
		q.Priorities = append(q.Priorities, priority)
	}
	var err error
	if q.CreatedFrom, err = optionalTime("createdFrom", c.Query("createdFrom")); err != nil {
		return q, err
	}
	if q.CreatedTo, err = optionalTime("createdTo", c.Query("createdTo")); err != nil {
		return q, err
	}
	return q, nil
}

func optionalID(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return &id, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// optionalTime parses an optional timestamp; blank means unset.
func optionalTime(key, val string) (*time.Time, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, val, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError("invalid "+key, map[string]any{key: val})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// presenter renders tickets, resolving repairman names once per request.
type presenter struct {
	users  *service.UserService
	engine *lifecycle.Engine
	names  map[int64]string
}

func newPresenter(users *service.UserService, engine *lifecycle.Engine) *presenter {
	return &presenter{users: users, engine: engine, names: map[int64]string{}}
}

func (p *presenter) ticket(ctx context.Context, actor domain.Actor, t *domain.Ticket) dto.TicketResponse {
	statusInfo, err := domain.Describe(t.Status)
	if err != nil {
		// A stored status outside the registry means the row was written
		// by something other than the lifecycle engine.
		observability.LoggerFrom(ctx).Error("ticket has unregistered status",
			zap.Int64("ticket_id", t.ID),
			zap.String("status", string(t.Status)),
			zap.Error(err))
	}
	categoryInfo, _ := domain.DescribeCategory(t.Category)
	priorityInfo, _ := domain.DescribePriority(t.Priority)
	images := t.Images
	if images == nil {
		images = []string{}
	}
	resp := dto.TicketResponse{
		ID:                  t.ID,
		Title:               t.Title,
		Category:            t.Category,
		CategoryLabel:       categoryInfo.Label,
		Location:            t.Location,
		Description:         t.Description,
		Priority:            t.Priority,
		PriorityLabel:       priorityInfo.Label,
		Status:              t.Status,
		StatusLabel:         statusInfo.Label,
		StatusColor:         statusInfo.ColorHint,
		StudentID:           t.StudentID,
		StudentName:         t.StudentName,
		ContactPhone:        t.ContactPhone,
		RepairmanID:         t.RepairmanID,
		Images:              images,
		EstimatedCompletion: t.EstimatedCompletion,
		RejectionReason:     t.RejectionReason,
		CloseReason:         t.CloseReason,
		RepairNotes:         t.RepairNotes,
		Rating:              t.Rating,
		Feedback:            t.Feedback,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		AssignedAt:          t.AssignedAt,
		CompletedAt:         t.CompletedAt,
		ClosedAt:            t.ClosedAt,
		EvaluatedAt:         t.EvaluatedAt,
		AllowedActions:      p.engine.Allowed(*t, actor),
	}
	if t.RepairmanID != nil {
		resp.RepairmanName = p.repairmanName(ctx, *t.RepairmanID)
	}
	return resp
}

func (p *presenter) tickets(ctx context.Context, actor domain.Actor, page service.Page[domain.Ticket]) dto.PageResponse[dto.TicketResponse] {
	out := dto.PageResponse[dto.TicketResponse]{
		List:     make([]dto.TicketResponse, 0, len(page.List)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for i := range page.List {
		out.List = append(out.List, p.ticket(ctx, actor, &page.List[i]))
	}
	return out
}

func (p *presenter) repairmanName(ctx context.Context, id int64) string {
	if name, found := p.names[id]; found {
		return name
	}
	name := ""
	if user, err := p.users.Get(ctx, id); err == nil {
		name = user.Name
	}
	p.names[id] = name
	return name
}

func historyResponses(entries []domain.TicketHistory) []dto.HistoryResponse {
	resp := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryResponse{
			Action:     entry.Action,
			ActorID:    entry.ActorID,
			ActorRole:  entry.ActorRole,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Comment:    entry.Comment,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}

func userResponses(users []domain.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return out
}
