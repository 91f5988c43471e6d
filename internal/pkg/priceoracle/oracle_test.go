package priceoracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedFetcher struct {
	mu      sync.Mutex
	prices  []float64
	errs    []error
	call    int
	fetched int
}

func (f *scriptedFetcher) FetchPrice(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.call
	f.call++
	f.fetched++
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, f.errs[i]
	}
	if i < len(f.prices) {
		return f.prices[i], nil
	}
	return f.prices[len(f.prices)-1], nil
}

func TestClientParsesFlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price": 42.5}`))
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL}
	price, err := client.FetchPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.5, price)
}

func TestClientParsesCoinGeckoShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pi-network":{"usd":1.75}}`))
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL}
	price, err := client.FetchPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.75, price)
}

func TestClientRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"garbage body", http.StatusOK, "not json"},
		{"zero price", http.StatusOK, `{"price": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := &Client{BaseURL: srv.URL}
			_, err := client.FetchPrice(context.Background())
			require.Error(t, err)
		})
	}
}

func TestOracleServesLatestQuote(t *testing.T) {
	fetcher := &scriptedFetcher{prices: []float64{2.0}}
	oracle := NewOracle(fetcher)

	_, ok := oracle.Quote()
	assert.False(t, ok)
	_, err := oracle.PiCost(1.0)
	require.ErrorIs(t, err, ErrPriceUnavailable)

	oracle.refresh(context.Background())

	q, ok := oracle.Quote()
	require.True(t, ok)
	assert.Equal(t, 2.0, q.Price)
	assert.False(t, q.FetchedAt.IsZero())

	// $1.00 at $2.00/Pi costs half a Pi.
	cost, err := oracle.PiCost(1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cost)
}

func TestOracleKeepsStaleQuoteOnFailure(t *testing.T) {
	fetcher := &scriptedFetcher{
		prices: []float64{2.0, 0},
		errs:   []error{nil, errors.New("endpoint down")},
	}
	oracle := NewOracle(fetcher)

	oracle.refresh(context.Background())
	require.NoError(t, oracle.Err())

	oracle.refresh(context.Background())
	require.Error(t, oracle.Err())

	// The previous quote survives the failed poll.
	q, ok := oracle.Quote()
	require.True(t, ok)
	assert.Equal(t, 2.0, q.Price)
}

func TestOracleMirrorsFreshQuotes(t *testing.T) {
	var mirrored []Quote
	fetcher := &scriptedFetcher{
		prices: []float64{1.5, 0, 1.6},
		errs:   []error{nil, errors.New("down"), nil},
	}
	oracle := NewOracle(fetcher, WithMirror(func(q Quote) {
		mirrored = append(mirrored, q)
	}))

	oracle.refresh(context.Background())
	oracle.refresh(context.Background())
	oracle.refresh(context.Background())

	// Only successful polls reach the mirror.
	require.Len(t, mirrored, 2)
	assert.Equal(t, 1.5, mirrored[0].Price)
	assert.Equal(t, 1.6, mirrored[1].Price)
}

func TestInksToUSD(t *testing.T) {
	assert.Equal(t, 1.0, InksToUSD(50))
	assert.Equal(t, 10.0, InksToUSD(500))
}
