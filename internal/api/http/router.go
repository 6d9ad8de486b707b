package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Meta           *handlers.MetaHandler
	RepairOrders   *handlers.RepairOrdersHandler
	Admin          *handlers.AdminHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Static segments such as /my are
// registered before /:id so they win the match.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Auth.Login)
	app.Post("/auth/register", cfg.Auth.Register)
	app.Get("/meta/statuses", cfg.Meta.Statuses)
	app.Get("/meta/categories", cfg.Meta.Categories)

	authed := cfg.AuthMiddleware.Handle
	app.Get("/users/me", authed, auth.RequireAnyRole(), cfg.Auth.Me)
	app.Put("/users/me", authed, auth.RequireAnyRole(), cfg.Auth.UpdateMe)

	student := auth.RequireRole(domain.RoleStudent)
	orders := app.Group("/repair-orders", authed)
	orders.Post("", student, cfg.RepairOrders.Create)
	orders.Get("/my", student, cfg.RepairOrders.ListMine)
	orders.Get("/:id", auth.RequireAnyRole(), cfg.RepairOrders.Get)
	orders.Delete("/:id", student, cfg.RepairOrders.Delete)
	orders.Post("/:id/evaluate", student, cfg.RepairOrders.Evaluate)

	admin := app.Group("/admin", authed, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/repair-orders", cfg.Admin.ListOrders)
	admin.Put("/repair-orders/:id/assign", cfg.Admin.Assign)
	admin.Put("/repair-orders/:id/status", cfg.Admin.UpdateStatus)
	admin.Get("/feedbacks", cfg.Admin.Feedbacks)
	admin.Get("/stats/category", cfg.Admin.CategoryStats)
	admin.Get("/stats/location", cfg.Admin.LocationStats)
	admin.Get("/stats/repairman-rating", cfg.Admin.RepairmanRatingStats)
	admin.Get("/stats/overview", cfg.Admin.Overview)
	admin.Get("/students", cfg.Admin.Students)
	admin.Get("/repairmen", cfg.Admin.Repairmen)
	admin.Put("/users/:id", cfg.Admin.UpdateUser)
	admin.Post("/users/:id/reset-password", cfg.Admin.ResetPassword)

	tasks := app.Group("/tasks", authed, auth.RequireRole(domain.RoleRepairman))
	tasks.Get("/my", cfg.Tasks.ListMine)
	tasks.Get("/stats", cfg.Tasks.Stats)
	tasks.Get("/:id", cfg.Tasks.Get)
	tasks.Put("/:id/status", cfg.Tasks.Start)
	tasks.Put("/:id/complete", cfg.Tasks.Complete)
	tasks.Put("/:id/notes", cfg.Tasks.Notes)
}
