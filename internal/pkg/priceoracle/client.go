package priceoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inktoons/inktoons/internal/pkg/env"
)

const defaultPriceAPIURL = "https://api.coingecko.com/api/v3/simple/price?ids=pi-network&vs_currencies=usd"

// Client fetches the current Pi/USD exchange rate from a CoinGecko style
// endpoint.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PRICE_API_URL, falling back to the
// public CoinGecko endpoint.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: env.GetEnv("PRICE_API_URL", defaultPriceAPIURL),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPrice returns the current USD price of one Pi. Both the flat
// `{"price": n}` shape and the CoinGecko nested shape are accepted.
func (c *Client) FetchPrice(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	price, err := parsePrice(body)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("price endpoint returned non-positive price %v", price)
	}
	return price, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func parsePrice(body []byte) (float64, error) {
	var flat struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Price > 0 {
		return flat.Price, nil
	}

	var nested map[string]map[string]float64
	if err := json.Unmarshal(body, &nested); err == nil {
		for _, currencies := range nested {
			if usd, ok := currencies["usd"]; ok {
				return usd, nil
			}
		}
	}
	return 0, fmt.Errorf("price response has no recognized shape: %s", body)
}
