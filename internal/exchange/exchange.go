package exchange

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"sma_trader/internal/models"
)

// ErrUnsupportedExchange is returned by the registry for an unknown exchange id.
var ErrUnsupportedExchange = errors.New("unsupported exchange")

// Exchange is the narrow surface the bot needs from a venue.
type Exchange interface {
	Name() string
	// FetchRecentCandles returns up to limit candles, oldest first.
	FetchRecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
	FetchBalance(ctx context.Context) (models.Balance, error)
	// RoundAmount floors amount to the symbol's lot step; zero when below the minimum size.
	RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error)
	SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, amount float64) (models.OrderReceipt, error)
}

type Options struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Sandbox    bool
	Timeout    time.Duration

	// BaseURL overrides the venue endpoint (tests, proxies).
	BaseURL    string
	HTTPClient *http.Client
	Log        *zap.Logger
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) logger() *zap.Logger {
	if o.Log != nil {
		return o.Log
	}
	return zap.NewNop()
}

// Error is a failed exchange call: transport, HTTP status or venue error code.
type Error struct {
	Exchange string
	Op       string
	Status   int
	Code     string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Exchange, e.Op, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s %s: http %d code=%s msg=%s", e.Exchange, e.Op, e.Status, e.Code, e.Msg)
	default:
		return fmt.Sprintf("%s %s: http %d: %s", e.Exchange, e.Op, e.Status, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }
