package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/gateway"
	"github.com/rupeeflow/rupeeflow/internal/idempotency"
	"github.com/rupeeflow/rupeeflow/internal/limits"
	"github.com/rupeeflow/rupeeflow/internal/money"
)

// Handler exposes the top-up endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// AddMoney processes a wallet top-up.
func (h *Handler) AddMoney(c *fiber.Ctx) error {
	var req AddMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	key := req.IdempotencyKey
	if key == "" {
		key = c.Get("Idempotency-Key")
	}

	res, err := h.service.AddMoney(c.UserContext(), Input{
		UserID:         uid,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: key,
	})
	if err != nil {
		switch {
		case errors.Is(err, money.ErrNotPositive),
			errors.Is(err, money.ErrPrecision),
			errors.Is(err, money.ErrOutOfBounds),
			errors.Is(err, gateway.ErrUnknownMethod):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, limits.ErrDailyLimitExceeded):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, idempotency.ErrInProgress):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.Status(status).JSON(AddMoneyResponse{
		Success:       res.Success,
		Message:       res.Message,
		Duplicate:     res.Duplicate,
		TransactionID: res.Entry.ID,
		Status:        res.Entry.Status,
		Amount:        money.FormatMinor(res.Entry.AmountMinor),
		NewBalance:    money.FormatMinor(res.Entry.BalanceAfterMinor),
	})
}
