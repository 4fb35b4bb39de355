package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/funding"
)

// RegisterFundingRoutes wires the top-up endpoint.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallet/add-money", h.AddMoney)
}
