package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

// TasksHandler exposes the repairman portal endpoints.
type TasksHandler struct {
	tickets *service.TicketService
	tasks   *service.TaskService
	query   *service.QueryService
	stats   *service.StatisticsService
	users   *service.UserService
}

// TasksDependencies bundles the services used by the repairman portal.
type TasksDependencies struct {
	Tickets *service.TicketService
	Tasks   *service.TaskService
	Query   *service.QueryService
	Stats   *service.StatisticsService
	Users   *service.UserService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(deps TasksDependencies) *TasksHandler {
	return &TasksHandler{
		tickets: deps.Tickets,
		tasks:   deps.Tasks,
		query:   deps.Query,
		stats:   deps.Stats,
		users:   deps.Users,
	}
}

// ListMine handles GET /tasks/my.
func (h *TasksHandler) ListMine(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	q, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.query.Search(c.UserContext(), actor, q)
	if err != nil {
		return err
	}
	p := newPresenter(h.users, h.tickets.Engine())
	out := dto.PageResponse[dto.TaskResponse]{
		List:     make([]dto.TaskResponse, 0, len(page.List)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for i := range page.List {
		out.List = append(out.List, h.task(c, p, actor, &page.List[i]))
	}
	return respond(c, out)
}

// Get handles GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketForActor(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	resp := h.task(c, newPresenter(h.users, h.tickets.Engine()), actor, ticket)
	resp.History = historyResponses(history)
	return respond(c, resp)
}

// Stats handles GET /tasks/stats.
func (h *TasksHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.ForRepairman(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return respond(c, stats)
}

// Start handles PUT /tasks/:id/status.
func (h *TasksHandler) Start(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TaskStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	eta, err := optionalTime("estimatedCompletionTime", req.EstimatedCompletionTime)
	if err != nil {
		return err
	}
	ticket, err := h.tasks.Start(c.UserContext(), actor, id, req.Status, eta)
	if err != nil {
		return err
	}
	return respond(c, h.task(c, newPresenter(h.users, h.tickets.Engine()), actor, ticket))
}

// Complete handles PUT /tasks/:id/complete.
func (h *TasksHandler) Complete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TaskCompleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tasks.Complete(c.UserContext(), actor, id, req.Status, req.ProcessNotes)
	if err != nil {
		return err
	}
	return respond(c, h.task(c, newPresenter(h.users, h.tickets.Engine()), actor, ticket))
}

// Notes handles PUT /tasks/:id/notes.
func (h *TasksHandler) Notes(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TaskNotesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tasks.UpdateNotes(c.UserContext(), actor, id, req.Notes)
	if err != nil {
		return err
	}
	return respond(c, h.task(c, newPresenter(h.users, h.tickets.Engine()), actor, ticket))
}

func (h *TasksHandler) task(c *fiber.Ctx, p *presenter, actor domain.Actor, ticket *domain.Ticket) dto.TaskResponse {
	timing := h.tasks.Timing(ticket)
	return dto.TaskResponse{
		TicketResponse:  p.ticket(c.UserContext(), actor, ticket),
		DurationMinutes: timing.DurationMinutes,
		Overdue:         timing.Overdue,
	}
}
