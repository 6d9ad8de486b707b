package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// AdminHandler exposes the administrator portal endpoints.
type AdminHandler struct {
	tickets    *service.TicketService
	query      *service.QueryService
	assignment *service.AssignmentService
	feedback   *service.FeedbackService
	stats      *service.StatisticsService
	users      *service.UserService
}

// AdminDependencies bundles the services used by the admin portal.
type AdminDependencies struct {
	Tickets    *service.TicketService
	Query      *service.QueryService
	Assignment *service.AssignmentService
	Feedback   *service.FeedbackService
	Stats      *service.StatisticsService
	Users      *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{
		tickets:    deps.Tickets,
		query:      deps.Query,
		assignment: deps.Assignment,
		feedback:   deps.Feedback,
		stats:      deps.Stats,
		users:      deps.Users,
	}
}

// ListOrders handles GET /admin/repair-orders.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	q, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	if q.RepairmanID, err = optionalID(c, "repairmanId"); err != nil {
		return err
	}
	if q.StudentID, err = optionalID(c, "studentId"); err != nil {
		return err
	}
	page, err := h.query.Search(c.UserContext(), actor, q)
	if err != nil {
		return err
	}
	return respond(c, h.presenter().tickets(c.UserContext(), actor, page))
}

// Assign handles PUT /admin/repair-orders/:id/assign.
func (h *AdminHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignment.AssignTicket(c.UserContext(), actor, id, req.RepairmanID)
	if err != nil {
		return err
	}
	return respond(c, h.presenter().ticket(c.UserContext(), actor, ticket))
}

// UpdateStatus handles PUT /admin/repair-orders/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AdminStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignment.UpdateStatus(c.UserContext(), actor, id, req.Status, req.ProcessNotes)
	if err != nil {
		return err
	}
	return respond(c, h.presenter().ticket(c.UserContext(), actor, ticket))
}

// Feedbacks handles GET /admin/feedbacks.
func (h *AdminHandler) Feedbacks(c *fiber.Ctx) error {
	q := service.FeedbackQuery{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("pageSize"), 10),
	}
	var err error
	if q.RepairmanID, err = optionalID(c, "repairmanId"); err != nil {
		return err
	}
	if raw := c.Query("rating"); raw != "" {
		rating, convErr := strconv.Atoi(raw)
		if convErr != nil || rating < 1 || rating > 5 {
			return apperrors.NewValidationError("rating filter must be 1..5", map[string]any{"rating": raw})
		}
		q.Rating = &rating
	}
	page, err := h.feedback.ListFeedback(c.UserContext(), q)
	if err != nil {
		return err
	}
	return respond(c, page)
}

// CategoryStats handles GET /admin/stats/category.
func (h *AdminHandler) CategoryStats(c *fiber.Ctx) error {
	out, err := h.stats.CategoryDistribution(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, out)
}

// LocationStats handles GET /admin/stats/location.
func (h *AdminHandler) LocationStats(c *fiber.Ctx) error {
	out, err := h.stats.LocationRanking(c.UserContext(), parseInt(c.Query("top"), 0))
	if err != nil {
		return err
	}
	return respond(c, out)
}

// RepairmanRatingStats handles GET /admin/stats/repairman-rating.
func (h *AdminHandler) RepairmanRatingStats(c *fiber.Ctx) error {
	out, err := h.stats.RepairmanRanking(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, out)
}

// Overview handles GET /admin/stats/overview.
func (h *AdminHandler) Overview(c *fiber.Ctx) error {
	out, err := h.stats.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, out)
}

// Students handles GET /admin/students.
func (h *AdminHandler) Students(c *fiber.Ctx) error {
	return h.listUsers(c, domain.RoleStudent)
}

// Repairmen handles GET /admin/repairmen.
func (h *AdminHandler) Repairmen(c *fiber.Ctx) error {
	return h.listUsers(c, domain.RoleRepairman)
}

// UpdateUser handles PUT /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdatePhone(c.UserContext(), actor, id, req.Phone)
	if err != nil {
		return err
	}
	return respond(c, dto.NewUserResponse(user))
}

// ResetPassword handles POST /admin/users/:id/reset-password.
func (h *AdminHandler) ResetPassword(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.ResetPassword(c.UserContext(), actor, id); err != nil {
		return err
	}
	return respond(c, fiber.Map{"id": id})
}

func (h *AdminHandler) listUsers(c *fiber.Ctx, role domain.Role) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	users, err := h.users.ListByRole(c.UserContext(), actor, role)
	if err != nil {
		return err
	}
	page := service.Paginate(userResponses(users), parseInt(c.Query("page"), 1), parseInt(c.Query("pageSize"), 10))
	return respond(c, page)
}

func (h *AdminHandler) presenter() *presenter {
	return newPresenter(h.users, h.tickets.Engine())
}
