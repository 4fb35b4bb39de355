package identity

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/wallet"
)

// Provisioner creates the wallet that backs a freshly registered user.
type Provisioner interface {
	Provision(ctx context.Context, userID string) (wallet.Wallet, error)
}

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	wallets Provisioner
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, wallets Provisioner) *Handler {
	return &Handler{service: service, wallets: wallets}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Currency string `json:"currency,omitempty"`
}

// Register handles user onboarding and provisions a zero-balance wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Email: req.Email, Name: req.Name, Password: req.Password})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	resp := registerResponse{UserID: user.ID, Email: user.Email, Name: user.Name, Status: user.Status}
	if h.wallets != nil {
		if w, err := h.wallets.Provision(c.UserContext(), user.ID); err == nil {
			resp.Currency = w.Currency
		}
	}
	return c.Status(http.StatusCreated).JSON(resp)
}
