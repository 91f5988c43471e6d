package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inktoons/inktoons/internal/pkg/priceoracle"
)

type staticFetcher struct {
	price float64
	err   error
}

func (f staticFetcher) FetchPrice(context.Context) (float64, error) {
	return f.price, f.err
}

func newPurchaseApp(t *testing.T, fetcher priceoracle.Fetcher) *fiber.App {
	t.Helper()

	o := priceoracle.NewOracle(fetcher, priceoracle.WithInterval(priceoracle.DefaultPollInterval))
	ctx, cancel := context.WithCancel(context.Background())
	o.Start(ctx)
	t.Cleanup(func() {
		cancel()
		o.Stop()
	})
	oracle = o

	app := fiber.New()
	app.Post("/api/v1/wallet/purchase", HandleWalletPurchase)
	app.Get("/api/v1/price", HandlePriceGet)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestWalletPurchasePricesPackInPi(t *testing.T) {
	// 1 Pi = $2.00, so the $3.00 pack costs 1.5 Pi.
	app := newPurchaseApp(t, staticFetcher{price: 2.0})

	resp := postJSON(t, app, "/api/v1/wallet/purchase", fiber.Map{"packId": 2})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Payment struct {
			Amount   float64 `json:"amount"`
			Memo     string  `json:"memo"`
			Metadata struct {
				Type    string `json:"type"`
				PackID  int    `json:"packId"`
				Credits int64  `json:"credits"`
			} `json:"metadata"`
		} `json:"payment"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, 1.5, body.Payment.Amount)
	assert.Equal(t, "pack", body.Payment.Metadata.Type)
	assert.Equal(t, 2, body.Payment.Metadata.PackID)
	// 150 base plus 10 bonus
	assert.Equal(t, int64(160), body.Payment.Metadata.Credits)
	assert.Contains(t, body.Payment.Memo, "160 Inks")
}

func TestWalletPurchaseWithoutQuoteIsRefused(t *testing.T) {
	app := newPurchaseApp(t, staticFetcher{err: assert.AnError})

	resp := postJSON(t, app, "/api/v1/wallet/purchase", fiber.Map{"packId": 1})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "price_unavailable", body["error"])
}

func TestWalletPurchaseRejectsUnknownPack(t *testing.T) {
	app := newPurchaseApp(t, staticFetcher{price: 2.0})

	resp := postJSON(t, app, "/api/v1/wallet/purchase", fiber.Map{"packId": 99})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestPriceEndpointWithoutQuote(t *testing.T) {
	app := newPurchaseApp(t, staticFetcher{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestPackCatalog(t *testing.T) {
	// The catalog keeps the published pack sizes and bonuses.
	tests := []struct {
		id      int
		credits int64
		usd     float64
	}{
		{1, 50, 1.00},
		{2, 160, 3.00},
		{3, 600, 10.00},
	}
	for _, tt := range tests {
		pack, ok := packByID(tt.id)
		require.True(t, ok)
		assert.Equal(t, tt.credits, pack.Credits())
		assert.Equal(t, tt.usd, pack.PriceUSD)
	}
}
