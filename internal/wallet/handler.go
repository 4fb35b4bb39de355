package wallet

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/rupeeflow/rupeeflow/internal/ledger"
	"github.com/rupeeflow/rupeeflow/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance returns the authenticated user's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	balance, err := h.service.Balance(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":   balance.UserID,
		"balance":   money.FormatMinor(balance.BalanceMinor),
		"currency":  balance.Currency,
		"timestamp": balance.AsOf,
	})
}

type historyEntry struct {
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Counterparty  string `json:"counterparty,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// History returns the authenticated user's ledger entries, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))

	entries, pg, err := h.service.History(c.UserContext(), uid, page, pageSize)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, "wallet not found")
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryEntry(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": out,
		"page":         pg.Page,
		"page_size":    pg.PageSize,
		"total":        pg.Total,
		"total_pages":  pg.TotalPages,
	})
}

func toHistoryEntry(e ledger.Entry) historyEntry {
	return historyEntry{
		TransactionID: e.ID,
		Type:          e.Type,
		Amount:        money.FormatMinor(e.AmountMinor),
		BalanceBefore: money.FormatMinor(e.BalanceBeforeMinor),
		BalanceAfter:  money.FormatMinor(e.BalanceAfterMinor),
		Status:        e.Status,
		PaymentMethod: e.PaymentMethod,
		Counterparty:  e.CounterpartyUserID,
		FailureReason: e.FailureReason,
		CreatedAt:     e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
