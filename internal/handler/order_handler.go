package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
)

// OrderServiceInterface defines the interface for order business logic.
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error)
}

// OrderHandler handles HTTP requests for checkout orders.
type OrderHandler struct {
	service   OrderServiceInterface
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler with the given service and validator.
func NewOrderHandler(svc OrderServiceInterface, v *validator.Validate) *OrderHandler {
	return &OrderHandler{service: svc, validator: v}
}

// CreateOrder handles POST /api/orders requests to turn a hold into an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req model.CreateOrderRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(validationErrorResponse(err))
	}

	// Create order via service
	order, err := h.service.CreateOrder(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrHoldInvalid) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(invalidInputResponse("hold_id", "hold invalid or expired"))
		}
		if errors.Is(err, service.ErrOrderExists) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(invalidInputResponse("hold_id", "an order already exists for this hold"))
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("hold_id", req.HoldID).
			Msg("failed to create order")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("order_id", order.ID.String()).
		Str("hold_id", req.HoldID).
		Str("total_amount", order.TotalAmount.String()).
		Msg("order created")

	return c.Status(fiber.StatusCreated).JSON(model.DataEnvelope{Data: order})
}
