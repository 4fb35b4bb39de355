package transfers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/idempotency"
	"github.com/rupeeflow/rupeeflow/internal/limits"
	"github.com/rupeeflow/rupeeflow/internal/money"
	"github.com/rupeeflow/rupeeflow/internal/otp"
	"github.com/rupeeflow/rupeeflow/internal/wallet"
)

// Handler exposes the transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GenerateOTP issues a single-use code for an intended transfer.
func (h *Handler) GenerateOTP(c *fiber.Ctx) error {
	var req GenerateOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	issued, err := h.service.GenerateOTP(c.UserContext(), uid, req.ToEmail, req.Amount)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(GenerateOTPResponse{
		ReferenceID:      issued.ReferenceID,
		RecipientName:    issued.Recipient.Name,
		ExpiresInSeconds: int64(issued.ExpiresIn.Seconds()),
		OTP:              issued.Code,
	})
}

// Transfer executes an OTP-authorized transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	key := req.IdempotencyKey
	if key == "" {
		key = c.Get("Idempotency-Key")
	}

	res, err := h.service.Transfer(c.UserContext(), Input{
		UserID:         uid,
		ToEmail:        req.ToEmail,
		Amount:         req.Amount,
		OTPCode:        req.OTP,
		ReferenceID:    req.ReferenceID,
		IdempotencyKey: key,
	})
	if err != nil {
		return mapError(err)
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.Status(status).JSON(TransferResponse{
		Success:        res.Success,
		Message:        res.Message,
		Duplicate:      res.Duplicate,
		TransactionID:  res.Entry.ID,
		RecipientEmail: res.Recipient.Email,
		Amount:         money.FormatMinor(res.Entry.AmountMinor),
		NewBalance:     money.FormatMinor(res.Entry.BalanceAfterMinor),
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, money.ErrNotPositive),
		errors.Is(err, money.ErrPrecision),
		errors.Is(err, money.ErrOutOfBounds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSelfTransfer):
		return fiber.NewError(http.StatusBadRequest, "cannot transfer to yourself")
	case errors.Is(err, ErrRecipientNotFound):
		return fiber.NewError(http.StatusNotFound, "recipient not found")
	case errors.Is(err, wallet.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, limits.ErrDailyLimitExceeded):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, otp.ErrInvalid):
		return fiber.NewError(http.StatusUnauthorized, "invalid otp")
	case errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusUnauthorized, "otp expired")
	case errors.Is(err, otp.ErrConsumed):
		return fiber.NewError(http.StatusUnauthorized, "otp already used")
	case errors.Is(err, otp.ErrAmountMismatch):
		return fiber.NewError(http.StatusUnauthorized, "otp issued for a different amount")
	case errors.Is(err, idempotency.ErrInProgress):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
