package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rupeeflow/rupeeflow/internal/config"
	"github.com/rupeeflow/rupeeflow/internal/logging"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:         "RupeeFlow",
		AppEnv:          "test",
		JWTSecret:       "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		GatewayTimeout:  5 * time.Second,
		IdempotencyTTL:  time.Hour,
		Limits: config.Limits{
			MinTransactionMinor:  10_000,
			MaxTransactionMinor:  20_000_000,
			DailyAddCeilingMinor: 50_000_000,
			DailyTransferMinor:   50_000_000,
			OTPValidity:          5 * time.Minute,
			OTPLength:            6,
		},
	}

	app := fiber.New()
	require.NoError(t, Setup(app, Deps{Cfg: cfg, Logger: logging.Discard()}))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 10_000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func register(t *testing.T, app *fiber.App, email, name string) {
	t.Helper()
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/identity/register", "", map[string]any{
		"email": email, "name": name, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status)
}

func login(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestEndToEndWalletJourney(t *testing.T) {
	app := testApp(t)

	register(t, app, "alice@example.com", "Alice")
	register(t, app, "bob@example.com", "Bob")
	alice := login(t, app, "alice@example.com")
	bob := login(t, app, "bob@example.com")

	// Fresh wallets open at zero.
	status, body := doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", body["balance"])

	// Fund through the simulated gateway.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/wallet/add-money", alice, map[string]any{
		"amount": 1000, "payment_method": "UPI",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1000.00", body["new_balance"])

	// Authorize and execute a transfer to bob.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/transfers/otp", alice, map[string]any{
		"to_email": "bob@example.com", "amount": 200,
	})
	require.Equal(t, http.StatusCreated, status)
	code, _ := body["otp"].(string)
	ref, _ := body["reference_id"].(string)
	require.NotEmpty(t, code)
	require.NotEmpty(t, ref)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/transfers", alice, map[string]any{
		"to_email": "bob@example.com", "amount": 200, "otp": code, "reference_id": ref,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "800.00", body["new_balance"])

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", body["balance"])

	// History shows the top-up and the debit, newest first.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/history", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])
	txs, _ := body["transactions"].([]any)
	require.Len(t, txs, 2)
	first, _ := txs[0].(map[string]any)
	assert.Equal(t, "TRANSFER_DEBIT", first["type"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := testApp(t)

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/wallet/add-money", "", map[string]any{
		"amount": 1000, "payment_method": "UPI",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTransferOTPFlowRejectsBadCode(t *testing.T) {
	app := testApp(t)

	register(t, app, "carol@example.com", "Carol")
	register(t, app, "dave@example.com", "Dave")
	carol := login(t, app, "carol@example.com")

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/wallet/add-money", carol, map[string]any{
		"amount": 1000, "payment_method": "NETBANKING",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/transfers/otp", carol, map[string]any{
		"to_email": "dave@example.com", "amount": 200,
	})
	require.Equal(t, http.StatusCreated, status)
	code, _ := body["otp"].(string)
	ref, _ := body["reference_id"].(string)

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/transfers", carol, map[string]any{
		"to_email": "dave@example.com", "amount": 200, "otp": wrong, "reference_id": ref,
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Balance is untouched after the rejected attempt.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/wallet/balance", carol, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1000.00", body["balance"])
}

func TestHealthEndpoint(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
