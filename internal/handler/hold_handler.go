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

// HoldServiceInterface defines the interface for hold business logic.
type HoldServiceInterface interface {
	CreateHold(ctx context.Context, req *model.CreateHoldRequest) (*model.HoldResponse, error)
}

// HoldHandler handles HTTP requests for stock holds.
type HoldHandler struct {
	service   HoldServiceInterface
	validator *validator.Validate
}

// NewHoldHandler creates a new HoldHandler with the given service and validator.
func NewHoldHandler(svc HoldServiceInterface, v *validator.Validate) *HoldHandler {
	return &HoldHandler{service: svc, validator: v}
}

// CreateHold handles POST /api/holds requests to reserve stock.
func (h *HoldHandler) CreateHold(c *fiber.Ctx) error {
	var req model.CreateHoldRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(validationErrorResponse(err))
	}

	// Reserve stock via service
	resp, err := h.service.CreateHold(c.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(invalidInputResponse("product_id", "product does not exist"))
		}
		if errors.Is(err, service.ErrInsufficientStock) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(invalidInputResponse("qty", "insufficient stock"))
		}
		if errors.Is(err, service.ErrInvalidQty) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(invalidInputResponse("qty", "qty must be a positive integer"))
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("product_id", req.ProductID).
			Msg("failed to create hold")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("hold_id", resp.HoldID.String()).
		Str("product_id", req.ProductID).
		Int("qty", *req.Qty).
		Time("expires_at", resp.ExpiresAt).
		Msg("hold created")

	return c.Status(fiber.StatusCreated).JSON(model.DataEnvelope{Data: resp})
}
