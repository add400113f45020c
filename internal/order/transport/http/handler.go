package http

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mzholdas/order-saga/internal/order/service"
	"github.com/mzholdas/order-saga/pkg/idempotency"
	"github.com/mzholdas/order-saga/pkg/logging"
	"github.com/mzholdas/order-saga/pkg/ratelimit"
	"github.com/mzholdas/order-saga/pkg/validation"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	service  service.OrderService
	idemp    idempotency.Store
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(service service.OrderService, idemp idempotency.Store, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		idemp:    idemp,
		validate: validation.New(),
		logger:   logger,
	}
}

func RegisterRoutes(app *fiber.App, h *OrderHandler, limiter *ratelimit.SlidingWindow) {
	app.Post("/orders", ratelimit.Middleware(limiter), h.Create)
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	ctx := c.UserContext()

	input := new(service.CreateOrderRequest)
	if err := c.BodyParser(input); err != nil {
		logging.Warn(ctx, h.logger, "Failed to parse create order body", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": validation.FormatError(err),
		})
	}

	idemKey := c.Get(idempotencyHeader)
	if idemKey != "" {
		already, err := h.idemp.CheckAndMark(ctx, idemKey)
		if err != nil {
			logging.Error(ctx, h.logger, "Idempotency store failed", zap.Error(err))

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal error",
			})
		}

		if already {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"message": "Duplicate request ignored",
			})
		}
	}

	orderID, err := h.service.CreateOrder(ctx, input)
	if err != nil {
		// Release the key so the client can retry with it.
		if idemKey != "" {
			h.forget(ctx, idemKey)
		}

		logging.Error(ctx, h.logger, "Order creation failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Order creation failed",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":  "Order accepted",
		"order_id": orderID,
	})
}

func (h *OrderHandler) forget(ctx context.Context, key string) {
	if err := h.idemp.Forget(ctx, key); err != nil {
		logging.Error(ctx, h.logger, "Failed to release idempotency key", zap.Error(err))
	}
}
