package priceoracle

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/internal/pkg/env"
)

// InkUSD is the fixed USD value of one Ink.
const InkUSD = 0.02

// DefaultPollInterval matches the refresh cadence of the price widget.
const DefaultPollInterval = 60 * time.Second

// ErrPriceUnavailable means no quote has been fetched yet; purchases that
// need a Pi conversion must be refused rather than guessed.
var ErrPriceUnavailable = errors.New("priceoracle: no price quote available")

// Fetcher is the price source. *Client satisfies it.
type Fetcher interface {
	FetchPrice(ctx context.Context) (float64, error)
}

// Quote is one observed Pi/USD rate.
type Quote struct {
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Oracle polls the price source on a fixed interval and serves the latest
// quote. A failed poll keeps the previous quote; the service degrades to
// stale prices, never to wrong ones.
type Oracle struct {
	fetcher  Fetcher
	interval time.Duration
	mirror   func(Quote)

	mu      sync.RWMutex
	quote   *Quote
	lastErr error

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) OracleOption {
	return func(o *Oracle) { o.interval = d }
}

// WithMirror registers a sink that receives every fresh quote, used to keep
// a Redis copy for other processes.
func WithMirror(mirror func(Quote)) OracleOption {
	return func(o *Oracle) { o.mirror = mirror }
}

// NewOracle creates an oracle around a price source.
func NewOracle(fetcher Fetcher, opts ...OracleOption) *Oracle {
	o := &Oracle{
		fetcher:  fetcher,
		interval: DefaultPollInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PollIntervalFromEnv reads PRICE_POLL_INTERVAL in seconds.
func PollIntervalFromEnv() time.Duration {
	raw := env.GetEnv("PRICE_POLL_INTERVAL", "")
	if raw == "" {
		return DefaultPollInterval
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warnf("invalid PRICE_POLL_INTERVAL %q, using default", raw)
		return DefaultPollInterval
	}
	return time.Duration(secs) * time.Second
}

// Start fetches once immediately, then keeps polling in the background until
// Stop is called or ctx ends.
func (o *Oracle) Start(ctx context.Context) {
	o.refresh(ctx)
	go o.loop(ctx)
}

// Stop halts the polling loop and waits for it to exit.
func (o *Oracle) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })
	<-o.done
}

// Quote returns the latest quote. ok is false until the first successful
// fetch.
func (o *Oracle) Quote() (Quote, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.quote == nil {
		return Quote{}, false
	}
	return *o.quote, true
}

// Err returns the error of the most recent poll, nil after a success.
func (o *Oracle) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

// PiCost converts a USD amount to Pi at the current quote.
func (o *Oracle) PiCost(usd float64) (float64, error) {
	q, ok := o.Quote()
	if !ok {
		return 0, ErrPriceUnavailable
	}
	return usd / q.Price, nil
}

// InksToUSD values an Ink amount at the fixed rate.
func InksToUSD(inks int64) float64 {
	return float64(inks) * InkUSD
}

func (o *Oracle) loop(ctx context.Context) {
	defer close(o.done)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.refresh(ctx)
		case <-o.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (o *Oracle) refresh(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	price, err := o.fetcher.FetchPrice(fetchCtx)

	o.mu.Lock()
	o.lastErr = err
	if err != nil {
		o.mu.Unlock()
		log.Warnf("price poll failed, keeping previous quote: %v", err)
		return
	}
	q := Quote{Price: price, FetchedAt: time.Now()}
	o.quote = &q
	o.mu.Unlock()

	if o.mirror != nil {
		o.mirror(q)
	}
}
