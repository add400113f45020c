package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mzholdas/order-saga/internal/query/readmodel"
)

type QueryHandler struct {
	store *readmodel.Store
}

func NewQueryHandler(store *readmodel.Store) *QueryHandler {
	return &QueryHandler{store: store}
}

func RegisterRoutes(app *fiber.App, h *QueryHandler) {
	app.Get("/orders", h.List)
	app.Get("/orders/:id", h.Get)
}

func (h *QueryHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.store.GetAll())
}

func (h *QueryHandler) Get(c *fiber.Ctx) error {
	view, ok := h.store.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}

	return c.JSON(view)
}
