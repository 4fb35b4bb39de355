package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/identity"
)

// RegisterIdentityRoutes wires onboarding. Registration auto-provisions a
// zero-balance wallet.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
