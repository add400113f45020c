package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mzholdas/order-saga/internal/delivery/domain"
	"github.com/mzholdas/order-saga/internal/delivery/repository"
	"github.com/mzholdas/order-saga/internal/delivery/service"
	"github.com/mzholdas/order-saga/pkg/validation"
	"go.uber.org/zap"
)

type DeliveryHandler struct {
	service  service.DeliveryService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewDeliveryHandler(service service.DeliveryService, logger *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service:  service,
		validate: validation.New(),
		logger:   logger,
	}
}

func RegisterRoutes(app *fiber.App, h *DeliveryHandler) {
	deliveries := app.Group("/deliveries")
	deliveries.Post("", h.Create)
	deliveries.Get("", h.List)
	deliveries.Get("/:id", h.FindByID)
	deliveries.Post("/:id/start", h.Start)
	deliveries.Post("/:id/confirm", h.Confirm)
	deliveries.Post("/:id/cancel", h.Cancel)
}

func (h *DeliveryHandler) Create(c *fiber.Ctx) error {
	input := new(service.CreateDeliveryRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validation.FormatError(err)})
	}

	delivery, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateDelivery) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		h.logger.Warn("create delivery failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create delivery"})
	}

	return c.Status(fiber.StatusCreated).JSON(delivery)
}

func (h *DeliveryHandler) FindByID(c *fiber.Ctx) error {
	delivery, err := h.service.FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(delivery)
}

func (h *DeliveryHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))

	deliveries, err := h.service.List(c.UserContext(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(deliveries)
}

func (h *DeliveryHandler) Start(c *fiber.Ctx) error {
	delivery, err := h.service.Start(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.transitionError(c, err)
	}

	return c.JSON(delivery)
}

func (h *DeliveryHandler) Confirm(c *fiber.Ctx) error {
	input := new(service.ConfirmDeliveryRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validation.FormatError(err)})
	}

	delivery, err := h.service.Confirm(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return h.transitionError(c, err)
	}

	return c.JSON(delivery)
}

func (h *DeliveryHandler) Cancel(c *fiber.Ctx) error {
	delivery, err := h.service.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.transitionError(c, err)
	}

	return c.JSON(delivery)
}

func (h *DeliveryHandler) transitionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrDeliveryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, domain.ErrNotPending),
		errors.Is(err, domain.ErrNotInTransit),
		errors.Is(err, domain.ErrAlreadyDelivered):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Warn("delivery transition failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
