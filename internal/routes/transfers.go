package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/transfers"
)

// RegisterTransferRoutes wires peer transfer endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfers.Handler) {
	r.Post("/transfers/otp", h.GenerateOTP)
	r.Post("/transfers", h.Transfer)
}
