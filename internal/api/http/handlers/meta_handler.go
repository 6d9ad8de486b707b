package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/domain"
)

// MetaHandler serves the enum tables the portals render.
type MetaHandler struct{}

// NewMetaHandler constructs handler.
func NewMetaHandler() *MetaHandler {
	return &MetaHandler{}
}

// Statuses handles GET /meta/statuses.
func (h *MetaHandler) Statuses(c *fiber.Ctx) error {
	statuses := domain.Statuses()
	out := make([]domain.DisplayInfo, 0, len(statuses))
	for _, status := range statuses {
		info, err := domain.Describe(status)
		if err != nil {
			return err
		}
		out = append(out, info)
	}
	return respond(c, out)
}

// Categories handles GET /meta/categories.
func (h *MetaHandler) Categories(c *fiber.Ctx) error {
	categories := domain.Categories()
	out := make([]domain.DisplayInfo, 0, len(categories))
	for _, category := range categories {
		info, _ := domain.DescribeCategory(category)
		out = append(out, info)
	}
	priorities := make([]domain.DisplayInfo, 0, 3)
	for _, priority := range []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh} {
		info, _ := domain.DescribePriority(priority)
		priorities = append(priorities, info)
	}
	return respond(c, fiber.Map{"categories": out, "priorities": priorities})
}
