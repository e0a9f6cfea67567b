package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"sma_trader/internal/helper"
	"sma_trader/internal/models"
)

const (
	okxLiveURL    = "https://www.okx.com"
	// OKX caps /market/candles at 300 rows
	okxMaxCandles = 300
)

// OKXClient talks to the OKX v5 REST API (spot, cash mode).
type OKXClient struct {
	rest    restClient
	apiKey  string
	secret  string
	passph  string
	sandbox bool
	lots    lotCache
	now     func() time.Time
}

func NewOKX(opts Options) (Exchange, error) {
	base := okxLiveURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	return &OKXClient{
		rest: restClient{
			venue:   "okx",
			baseURL: base,
			http:    opts.httpClient(),
			log:     opts.logger(),
		},
		apiKey:  opts.APIKey,
		secret:  opts.APISecret,
		passph:  opts.Passphrase,
		sandbox: opts.Sandbox,
		now:     time.Now,
	}, nil
}

func (c *OKXClient) Name() string { return "okx" }

// okxEnvelope is the common {"code","msg","data"} wrapper.
type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func (e okxEnvelope[T]) check(op string) error {
	if e.Code != "0" {
		return &Error{Exchange: "okx", Op: op, Status: http.StatusOK, Code: e.Code, Msg: e.Msg}
	}
	return nil
}

func okxBar(tf string) string {
	switch tf = helper.NormTF(tf); tf {
	case "1h", "2h", "4h", "6h", "12h", "1d", "1w":
		return strings.ToUpper(tf)
	default:
		return tf
	}
}

func (c *OKXClient) FetchRecentCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	instID, ok := helper.VenueSymbol(symbol, "-")
	if !ok {
		return nil, errors.Errorf("okx: bad symbol %q", symbol)
	}
	if limit > okxMaxCandles {
		limit = okxMaxCandles
	}
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", okxBar(timeframe))
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.generateRequest(ctx, http.MethodGet, "/api/v5/market/candles?"+q.Encode(), "", false)
	if err != nil {
		return nil, err
	}
	var env okxEnvelope[[]string]
	if err := c.rest.do("fetch_candles", req, &env); err != nil {
		return nil, err
	}
	if err := env.check("fetch_candles"); err != nil {
		return nil, err
	}

	// OKX returns newest first
	out := make([]models.Candle, len(env.Data))
	for i, row := range env.Data {
		candle, err := okxCandle(row)
		if err != nil {
			return nil, errors.Wrapf(err, "okx candle %d", i)
		}
		out[len(env.Data)-1-i] = candle
	}
	return out, nil
}

// candle row: [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
func okxCandle(row []string) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, errors.Errorf("short row: %d fields", len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, errors.Wrapf(err, "parse ts %q", row[0])
	}
	var vals [5]float64
	for i := range vals {
		v, err := parseNumber(row[i+1])
		if err != nil {
			return models.Candle{}, err
		}
		vals[i] = v
	}
	return models.Candle{
		Timestamp: time.UnixMilli(ts).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

type okxAccount struct {
	Details []struct {
		Ccy       string `json:"ccy"`
		AvailBal  string `json:"availBal"`
		FrozenBal string `json:"frozenBal"`
		Eq        string `json:"eq"`
	} `json:"details"`
}

func (c *OKXClient) FetchBalance(ctx context.Context) (models.Balance, error) {
	if err := c.requireCreds(); err != nil {
		return nil, err
	}
	req, err := c.generateRequest(ctx, http.MethodGet, "/api/v5/account/balance", "", true)
	if err != nil {
		return nil, err
	}
	var env okxEnvelope[okxAccount]
	if err := c.rest.do("fetch_balance", req, &env); err != nil {
		return nil, err
	}
	if err := env.check("fetch_balance"); err != nil {
		return nil, err
	}

	out := models.Balance{}
	for _, acc := range env.Data {
		for _, d := range acc.Details {
			free, err := parseNumber(d.AvailBal)
			if err != nil {
				return nil, errors.Wrapf(err, "okx balance %s", d.Ccy)
			}
			used, err := parseNumber(d.FrozenBal)
			if err != nil {
				return nil, errors.Wrapf(err, "okx balance %s", d.Ccy)
			}
			total, err := parseNumber(d.Eq)
			if err != nil {
				return nil, errors.Wrapf(err, "okx balance %s", d.Ccy)
			}
			if total == 0 {
				total = free + used
			}
			out[strings.ToUpper(d.Ccy)] = models.Asset{Free: free, Used: used, Total: total}
		}
	}
	return out, nil
}

type okxInstrument struct {
	InstID string `json:"instId"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	State  string `json:"state"`
}

func (c *OKXClient) fetchLotSize(ctx context.Context, symbol string) (lotSize, error) {
	instID, ok := helper.VenueSymbol(symbol, "-")
	if !ok {
		return lotSize{}, errors.Errorf("okx: bad symbol %q", symbol)
	}
	q := url.Values{}
	q.Set("instType", "SPOT")
	q.Set("instId", instID)

	req, err := c.generateRequest(ctx, http.MethodGet, "/api/v5/public/instruments?"+q.Encode(), "", false)
	if err != nil {
		return lotSize{}, err
	}
	var env okxEnvelope[okxInstrument]
	if err := c.rest.do("fetch_lot_size", req, &env); err != nil {
		return lotSize{}, err
	}
	if err := env.check("fetch_lot_size"); err != nil {
		return lotSize{}, err
	}
	if len(env.Data) == 0 {
		return lotSize{}, errors.Errorf("okx: instrument %s not found", instID)
	}

	inst := env.Data[0]
	if inst.State != "" && inst.State != "live" {
		return lotSize{}, errors.Errorf("okx: instrument %s not live: state=%s", instID, inst.State)
	}
	lot, err := parseLotSize(inst.LotSz, inst.MinSz)
	return lot, errors.Wrapf(err, "okx %s lotSz", instID)
}

func (c *OKXClient) RoundAmount(ctx context.Context, symbol string, amount float64) (float64, error) {
	lot, err := c.lots.get(ctx, symbol, c.fetchLotSize)
	if err != nil {
		return 0, err
	}
	return lot.round(amount), nil
}

type okxOrderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	TgtCcy  string `json:"tgtCcy"`
	ClOrdID string `json:"clOrdId"`
}

type okxOrderAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

func (c *OKXClient) SubmitMarketOrder(ctx context.Context, symbol string, side models.Side, amount float64) (models.OrderReceipt, error) {
	if side == models.SideNone {
		return models.OrderReceipt{}, errors.New("market order needs a side")
	}
	if err := c.requireCreds(); err != nil {
		return models.OrderReceipt{}, err
	}
	instID, ok := helper.VenueSymbol(symbol, "-")
	if !ok {
		return models.OrderReceipt{}, errors.Errorf("okx: bad symbol %q", symbol)
	}
	amount, err := c.RoundAmount(ctx, symbol, amount)
	if err != nil {
		return models.OrderReceipt{}, err
	}
	if amount <= 0 {
		return models.OrderReceipt{}, errors.Wrapf(ErrBelowMinSize, "okx %s", symbol)
	}

	// clOrdId is alphanumeric, up to 32 chars
	clientID := strings.ReplaceAll(uuid.NewString(), "-", "")
	body, err := jsonAPI.Marshal(okxOrderRequest{
		InstID:  instID,
		TdMode:  "cash",
		Side:    side.Lower(),
		OrdType: "market",
		Sz:      formatAmount(amount),
		TgtCcy:  "base_ccy",
		ClOrdID: clientID,
	})
	if err != nil {
		return models.OrderReceipt{}, errors.Wrap(err, "marshal okx order")
	}

	req, err := c.generateRequest(ctx, http.MethodPost, "/api/v5/trade/order", string(body), true)
	if err != nil {
		return models.OrderReceipt{}, err
	}
	var env okxEnvelope[okxOrderAck]
	if err := c.rest.do("submit_order", req, &env); err != nil {
		return models.OrderReceipt{}, err
	}
	if err := env.check("submit_order"); err != nil {
		if len(env.Data) > 0 && env.Data[0].SCode != "" && env.Data[0].SCode != "0" {
			return models.OrderReceipt{}, &Error{Exchange: "okx", Op: "submit_order", Status: http.StatusOK, Code: env.Data[0].SCode, Msg: env.Data[0].SMsg}
		}
		return models.OrderReceipt{}, err
	}
	if len(env.Data) == 0 {
		return models.OrderReceipt{}, &Error{Exchange: "okx", Op: "submit_order", Status: http.StatusOK, Msg: "empty order ack"}
	}

	ack := env.Data[0]
	return models.OrderReceipt{
		ID:            ack.OrdID,
		ClientOrderID: clientID,
		Exchange:      "okx",
		Symbol:        symbol,
		Side:          side,
		Amount:        amount,
		Status:        models.OrderStatusSubmitted,
		CreatedAt:     c.now().UTC(),
		Raw: map[string]any{
			"ordId":   ack.OrdID,
			"clOrdId": ack.ClOrdID,
			"sCode":   ack.SCode,
			"sMsg":    ack.SMsg,
		},
	}, nil
}

func (c *OKXClient) requireCreds() error {
	if c.apiKey == "" || c.secret == "" || c.passph == "" {
		return errors.New("okx: api key, secret and passphrase are required")
	}
	return nil
}

// generateRequest builds a request; signed ones carry the OK-ACCESS-* headers where the
// signature is base64 HMAC-SHA256 of timestamp + METHOD + path(with query) + body.
func (c *OKXClient) generateRequest(ctx context.Context, method, requestPath, body string, signed bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.rest.baseURL+requestPath, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, errors.Wrapf(err, "build %s request", requestPath)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sandbox {
		req.Header.Set("x-simulated-trading", "1")
	}
	if !signed {
		return req, nil
	}

	ts := c.now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := ts + strings.ToUpper(method) + requestPath + body
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(msg))
	req.Header.Set("OK-ACCESS-KEY", c.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", base64.StdEncoding.EncodeToString(h.Sum(nil)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	return req, nil
}
