package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mzholdas/order-saga/internal/product/domain"
	"github.com/mzholdas/order-saga/internal/product/repository"
	"github.com/mzholdas/order-saga/internal/product/service"
	"github.com/mzholdas/order-saga/pkg/validation"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductHandler(service service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validation.New(),
		logger:   logger,
	}
}

func RegisterRoutes(app *fiber.App, h *ProductHandler) {
	products := app.Group("/products")
	products.Post("", h.Create)
	products.Get("", h.List)
	products.Get("/:id", h.FindByID)
	products.Patch("/:id/price", h.UpdatePrice)
	products.Delete("/:id", h.Deactivate)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	input := new(service.CreateProductRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": validation.FormatError(err)})
	}

	product, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSKU) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		h.logger.Warn("create product failed", zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	product, err := h.service.FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(product)
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	limit := int64(c.QueryInt("limit", 20))
	offset := int64(c.QueryInt("offset", 0))

	products, err := h.service.List(c.UserContext(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(products)
}

func (h *ProductHandler) UpdatePrice(c *fiber.Ctx) error {
	var input struct {
		Price int64 `json:"price"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "error parsing body"})
	}

	err := h.service.UpdatePrice(c.UserContext(), c.Params("id"), input.Price)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		case errors.Is(err, domain.ErrInvalidPrice):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.service.Deactivate(c.UserContext(), c.Params("id")); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
