package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/service"
)

// RepairOrdersHandler manages the student portal endpoints.
type RepairOrdersHandler struct {
	tickets *service.TicketService
	query   *service.QueryService
	users   *service.UserService
}

// NewRepairOrdersHandler constructs handler.
func NewRepairOrdersHandler(tickets *service.TicketService, query *service.QueryService, users *service.UserService) *RepairOrdersHandler {
	return &RepairOrdersHandler{tickets: tickets, query: query, users: users}
}

// Create handles POST /repair-orders.
func (h *RepairOrdersHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:        req.Title,
		Category:     domain.TicketCategory(req.Category),
		Location:     req.Location,
		Description:  req.Description,
		Priority:     domain.TicketPriority(req.Priority),
		ContactPhone: req.ContactPhone,
		Images:       req.Images,
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respond(c, h.presenter().ticket(c.UserContext(), actor, ticket))
}

// ListMine handles GET /repair-orders/my.
func (h *RepairOrdersHandler) ListMine(c *fiber.Ctx) error {
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
	return respond(c, h.presenter().tickets(c.UserContext(), actor, page))
}

// Get handles GET /repair-orders/:id for every role allowed to see the ticket.
func (h *RepairOrdersHandler) Get(c *fiber.Ctx) error {
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
	resp := h.presenter().ticket(c.UserContext(), actor, ticket)
	resp.History = historyResponses(history)
	return respond(c, resp)
}

// Delete handles DELETE /repair-orders/:id.
func (h *RepairOrdersHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.tickets.Apply(c.UserContext(), actor, id, lifecycle.Delete()); err != nil {
		return err
	}
	return respond(c, fiber.Map{"id": id})
}

// Evaluate handles POST /repair-orders/:id/evaluate.
func (h *RepairOrdersHandler) Evaluate(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.EvaluateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rating, feedback := req.Resolve()
	ticket, err := h.tickets.Apply(c.UserContext(), actor, id, lifecycle.Evaluate(rating, feedback))
	if err != nil {
		return err
	}
	return respond(c, h.presenter().ticket(c.UserContext(), actor, ticket))
}

func (h *RepairOrdersHandler) presenter() *presenter {
	return newPresenter(h.users, h.tickets.Engine())
}
