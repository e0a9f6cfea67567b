package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sma_trader/internal/helper"
	"sma_trader/internal/models"
)

const (
	binanceLiveURL    = "https://api.binance.com"
	binanceTestnetURL = "https://testnet.binance.vision"
	recvWindow        = "5000"
	// Binance and MEXC cap /api/v3/klines at 1000 rows
	spotMaxCandles    = 1000
)

// spotVenue describes a venue speaking the Binance spot REST dialect.
type spotVenue struct {
	name       string
	liveURL    string
	sandboxURL string // empty: venue has no sandbox
	keyHeader  string
	maxCandles int
	interval   func(tf string) string
}

// SpotClient is a client for Binance-style /api/v3 spot REST APIs.
type SpotClient struct {
	rest      restClient
	venue     spotVenue
	apiKey    string
	apiSecret string
	lots      lotCache
	now       func() time.Time
}

var binanceVenue = spotVenue{
	name:       "binance",
	liveURL:    binanceLiveURL,
	sandboxURL: binanceTestnetURL,
	keyHeader:  "X-MBX-APIKEY",
	maxCandles: spotMaxCandles,
	interval:   helper.NormTF,
}

func NewBinance(opts Options) (Exchange, error) {
	return newSpotClient(binanceVenue, opts), nil
}

func newSpotClient(v spotVenue, opts Options) *SpotClient {
	log := opts.logger()
	base := v.liveURL
	if opts.Sandbox {
		if v.sandboxURL != "" {
			base = v.sandboxURL
		} else {
			log.Warn("sandbox requested but venue has no sandbox; using live endpoint",
				zap.String("exchange", v.name))
		}
	}
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	return &SpotClient{
		rest: restClient{
			venue:   v.name,
			baseURL: base,
			http:    opts.httpClient(),
			log:     log,
		},
		venue:     v,
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
		now:       time.Now,
	}
}

func (c *SpotClient) Name() string { return c.venue.name }

func (c *SpotClient) FetchRecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	sym, ok := helper.VenueSymbol(symbol, "")
	if !ok {
		return nil, errors.Errorf("%s: bad symbol %q", c.venue.name, symbol)
	}
	if c.venue.maxCandles > 0 && limit > c.venue.maxCandles {
		limit = c.venue.maxCandles
	}
	q := url.Values{}
	q.Set("symbol", sym)
	q.Set("interval", c.venue.interval(timeframe))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rest.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build klines request")
	}

	var rows [][]any
	if err := c.rest.do("fetch_candles", req, &rows); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		candle, err := spotKline(row)
		if err != nil {
			return nil, errors.Wrapf(err, "%s kline %d", c.venue.name, i)
		}
		out = append(out, candle)
	}
	return out, nil
}

// kline row: [openTime, open, high, low, close, volume, closeTime, ...]
func spotKline(row []any) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, errors.Errorf("short row: %d fields", len(row))
	}
	var vals [6]float64
	for i := 0; i < 6; i++ {
		v, err := parseNumber(row[i])
		if err != nil {
			return models.Candle{}, err
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(int64(vals[0])).UTC(),
		Open:      vals[1],
		High:      vals[2],
		Low:       vals[3],
		Close:     vals[4],
		Volume:    vals[5],
	}, nil
}

type spotAccount struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

func (c *SpotClient) FetchBalance(ctx context.Context) (models.Balance, error) {
	req, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, err
	}

	var acc spotAccount
	if err := c.rest.do("fetch_balance", req, &acc); err != nil {
		return nil, err
	}

	out := make(models.Balance, len(acc.Balances))
	for _, b := range acc.Balances {
		free, err := parseNumber(b.Free)
		if err != nil {
			return nil, errors.Wrapf(err, "%s balance %s", c.venue.name, b.Asset)
		}
		locked, err := parseNumber(b.Locked)
		if err != nil {
			return nil, errors.Wrapf(err, "%s balance %s", c.venue.name, b.Asset)
		}
		out[b.Asset] = models.Asset{Free: free, Used: locked, Total: free + locked}
	}
	return out, nil
}

type spotFilter struct {
	FilterType string `json:"filterType"`
	MinQty     string `json:"minQty"`
	StepSize   string `json:"stepSize"`
}

type spotExchangeInfo struct {
	Symbols []struct {
		Symbol  string       `json:"symbol"`
		Filters []spotFilter `json:"filters"`
		// MEXC leaves LOT_SIZE out and publishes precision fields instead
		BaseAssetPrecision *int32 `json:"baseAssetPrecision"`
		BaseSizePrecision  string `json:"baseSizePrecision"`
	} `json:"symbols"`
}

func (c *SpotClient) fetchLotSize(ctx context.Context, symbol string) (lotSize, error) {
	sym, ok := helper.VenueSymbol(symbol, "")
	if !ok {
		return lotSize{}, errors.Errorf("%s: bad symbol %q", c.venue.name, symbol)
	}
	q := url.Values{}
	q.Set("symbol", sym)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rest.baseURL+"/api/v3/exchangeInfo?"+q.Encode(), nil)
	if err != nil {
		return lotSize{}, errors.Wrap(err, "build exchangeInfo request")
	}

	var info spotExchangeInfo
	if err := c.rest.do("fetch_lot_size", req, &info); err != nil {
		return lotSize{}, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != sym {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				lot, err := parseLotSize(f.StepSize, f.MinQty)
				return lot, errors.Wrapf(err, "%s %s LOT_SIZE", c.venue.name, sym)
			}
		}
		if s.BaseAssetPrecision != nil {
			lot, err := parseLotSize(decimal.New(1, -*s.BaseAssetPrecision).String(), s.BaseSizePrecision)
			return lot, errors.Wrapf(err, "%s %s precision", c.venue.name, sym)
		}
		return lotSize{}, errors.Errorf("%s: no lot size for %s", c.venue.name, sym)
	}
	return lotSize{}, errors.Errorf("%s: symbol %s not listed", c.venue.name, sym)
}

func (c *SpotClient) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	lot, err := c.lots.get(ctx, symbol, c.fetchLotSize)
	if err != nil {
		return 0, err
	}
	return lot.round(amount), nil
}

func (c *SpotClient) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, amount float64) (models.OrderReceipt, error) {
	if side == models.SideNone {
		return models.OrderReceipt{}, errors.New("market order needs a side")
	}
	sym, ok := helper.VenueSymbol(symbol, "")
	if !ok {
		return models.OrderReceipt{}, errors.Errorf("%s: bad symbol %q", c.venue.name, symbol)
	}
	if c.apiKey == "" || c.apiSecret == "" {
		return models.OrderReceipt{}, errors.Errorf("%s: api creds empty", c.venue.name)
	}
	amount, err := c.RoundAmount(ctx, symbol, amount)
	if err != nil {
		return models.OrderReceipt{}, err
	}
	if amount <= 0 {
		return models.OrderReceipt{}, errors.Wrapf(ErrBelowMinSize, "%s %s", c.venue.name, symbol)
	}
	clientID := uuid.NewString()

	params := url.Values{}
	params.Set("symbol", sym)
	params.Set("side", string(side))
	params.Set("type", "MARKET")
	params.Set("quantity", formatAmount(amount))
	params.Set("newClientOrderId", clientID)

	req, err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.OrderReceipt{}, err
	}

	raw := map[string]any{}
	if err := c.rest.do("submit_order", req, &raw); err != nil {
		return models.OrderReceipt{}, err
	}

	receipt := models.OrderReceipt{
		ClientOrderID: clientID,
		Exchange:      c.venue.name,
		Symbol:        symbol,
		Side:          side,
		Amount:        amount,
		Status:        models.OrderStatusSubmitted,
		CreatedAt:     c.now().UTC(),
		Raw:           raw,
	}
	if id, ok := raw["orderId"]; ok && id != nil {
		receipt.ID = fmt.Sprint(id)
	}
	if cid, ok := raw["clientOrderId"].(string); ok && cid != "" {
		receipt.ClientOrderID = cid
	}
	if st, ok := raw["status"].(string); ok && st != "" {
		receipt.Status = st
	}
	return receipt, nil
}

// signedRequest appends timestamp and the hex HMAC-SHA256 signature of the query string.
func (c *SpotClient) signedRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return nil, errors.Errorf("%s: api creds empty", c.venue.name)
	}
	params.Set("recvWindow", recvWindow)
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.rest.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request", path)
	}
	req.Header.Set(c.venue.keyHeader, c.apiKey)
	return req, nil
}

func (c *SpotClient) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
