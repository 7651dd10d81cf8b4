package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/internal/service"
)

// ProductServiceInterface defines the interface for product reads.
type ProductServiceInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
}

// ProductHandler handles HTTP requests for product reads.
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler creates a new ProductHandler with the given service.
func NewProductHandler(svc ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: svc}
}

// GetProduct handles GET /api/products/:id requests.
// A malformed id is indistinguishable from an unknown one: both 404.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
	}

	product, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
		}
		log.Error().Err(err).Str("product_id", id.String()).Msg("failed to get product")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(model.DataEnvelope{Data: product})
}
