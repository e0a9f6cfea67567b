package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sma_trader/internal/models"
)

func newTestSpot(t *testing.T, v spotVenue, h http.HandlerFunc) *SpotClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := newSpotClient(v, Options{APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestSpotFetchRecentCandles(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1h", r.URL.Query().Get("interval"))
		assert.Equal(t, "60", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			[1700000000000,"100.5","101","99.5","100.75","12.5",1700003599999,"0",1,"0","0","0"],
			[1700003600000,"100.75","102","100","101.25","8",1700007199999,"0",1,"0","0","0"]
		]`))
	})

	candles, err := c.FetchRecentCandles(context.Background(), "BTC/USDT", "60m", 60)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), candles[0].Timestamp)
	assert.Equal(t, 100.5, candles[0].Open)
	assert.Equal(t, 100.75, candles[0].Close)
	assert.Equal(t, 101.25, candles[1].Close)
	assert.Equal(t, 8.0, candles[1].Volume)
}

func TestSpotFetchRecentCandlesCapsLimit(t *testing.T) {
	for _, v := range []spotVenue{binanceVenue, mexcVenue} {
		c := newTestSpot(t, v, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1000", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[]`))
		})

		_, err := c.FetchRecentCandles(context.Background(), "BTC/USDT", "1m", 1500)
		require.NoError(t, err, v.name)
	}
}

func TestSpotFetchBalanceSignsRequest(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/account", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))

		raw := r.URL.RawQuery
		i := strings.LastIndex(raw, "&signature=")
		if !assert.Positive(t, i) {
			return
		}
		mac := hmac.New(sha256.New, []byte("secret"))
		mac.Write([]byte(raw[:i]))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), raw[i+len("&signature="):])
		assert.Equal(t, "1700000000000", r.URL.Query().Get("timestamp"))

		_, _ = w.Write([]byte(`{"balances":[
			{"asset":"BTC","free":"0.5","locked":"0.1"},
			{"asset":"USDT","free":"1000","locked":"0"}
		]}`))
	})

	bal, err := c.FetchBalance(context.Background())
	require.NoError(t, err)

	free, ok := bal.Free("btc")
	assert.True(t, ok)
	assert.Equal(t, 0.5, free)
	assert.InDelta(t, 0.6, bal["BTC"].Total, 1e-12)
	assert.Equal(t, 1000.0, bal["USDT"].Free)
}

const btcusdtExchangeInfo = `{"symbols":[{"symbol":"BTCUSDT","status":"TRADING","filters":[
	{"filterType":"PRICE_FILTER","minPrice":"0.01000000","maxPrice":"1000000.00000000","tickSize":"0.01000000"},
	{"filterType":"LOT_SIZE","minQty":"0.00001000","maxQty":"9000.00000000","stepSize":"0.00001000"}
]}]}`

func TestSpotSubmitMarketOrder(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/exchangeInfo" {
			_, _ = w.Write([]byte(btcusdtExchangeInfo))
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "BTCUSDT", q.Get("symbol"))
		assert.Equal(t, "SELL", q.Get("side"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "0.001", q.Get("quantity"))
		assert.NotEmpty(t, q.Get("newClientOrderId"))

		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","orderId":28457123456,"clientOrderId":"` +
			q.Get("newClientOrderId") + `","status":"FILLED","executedQty":"0.00100000"}`))
	})

	receipt, err := c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideSell, 0.001)
	require.NoError(t, err)

	assert.Equal(t, "28457123456", receipt.ID)
	assert.NotEmpty(t, receipt.ClientOrderID)
	assert.Equal(t, "binance", receipt.Exchange)
	assert.Equal(t, models.SideSell, receipt.Side)
	assert.Equal(t, 0.001, receipt.Amount)
	assert.Equal(t, "FILLED", receipt.Status)
	assert.False(t, receipt.Simulated)
}

func TestSpotSubmitMarketOrderRoundsToLotStep(t *testing.T) {
	var infoCalls atomic.Int32
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/exchangeInfo":
			infoCalls.Add(1)
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			assert.Empty(t, r.URL.Query().Get("signature"))
			_, _ = w.Write([]byte(btcusdtExchangeInfo))
		case "/api/v3/order":
			assert.Equal(t, "0.00098", r.URL.Query().Get("quantity"))
			_, _ = w.Write([]byte(`{"orderId":1,"status":"FILLED"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	receipt, err := c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideSell, 0.00098765)
	require.NoError(t, err)
	assert.Equal(t, 0.00098, receipt.Amount)

	_, err = c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideSell, 0.00098765)
	require.NoError(t, err)
	assert.EqualValues(t, 1, infoCalls.Load())
}

func TestSpotSubmitMarketOrderBelowMinSize(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path) {
			return
		}
		_, _ = w.Write([]byte(btcusdtExchangeInfo))
	})

	amount, err := c.RoundAmount(context.Background(), "BTC/USDT", 0.000009)
	require.NoError(t, err)
	assert.Zero(t, amount)

	_, err = c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideSell, 0.000009)
	assert.ErrorIs(t, err, ErrBelowMinSize)
}

func TestMexcRoundAmountFromPrecision(t *testing.T) {
	c := newTestSpot(t, mexcVenue, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(`{"symbols":[{"symbol":"ETHUSDT","baseAssetPrecision":4,"baseSizePrecision":"0.001","filters":[]}]}`))
	})

	amount, err := c.RoundAmount(context.Background(), "ETH/USDT", 0.0123456)
	require.NoError(t, err)
	assert.Equal(t, 0.0123, amount)

	amount, err = c.RoundAmount(context.Background(), "ETH/USDT", 0.00099)
	require.NoError(t, err)
	assert.Zero(t, amount)
}

func TestSpotRoundAmountUnlistedSymbol(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbols":[]}`))
	})

	_, err := c.RoundAmount(context.Background(), "BTC/USDT", 1)
	assert.ErrorContains(t, err, "not listed")
}

func TestSpotVenueErrorIsTyped(t *testing.T) {
	c := newTestSpot(t, binanceVenue, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/exchangeInfo" {
			_, _ = w.Write([]byte(btcusdtExchangeInfo))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance for requested action."}`))
	})

	_, err := c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideBuy, 1)
	require.Error(t, err)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "binance", exErr.Exchange)
	assert.Equal(t, "submit_order", exErr.Op)
	assert.Equal(t, http.StatusBadRequest, exErr.Status)
	assert.Equal(t, "-2010", exErr.Code)
	assert.Contains(t, exErr.Msg, "insufficient balance")
}

func TestSpotPrivateCallsNeedCredentials(t *testing.T) {
	c := newSpotClient(binanceVenue, Options{BaseURL: "http://127.0.0.1:1"})

	_, err := c.FetchBalance(context.Background())
	assert.ErrorContains(t, err, "api creds empty")

	_, err = c.SubmitMarketOrder(context.Background(), "BTC/USDT", models.SideBuy, 1)
	assert.ErrorContains(t, err, "api creds empty")
}

func TestSpotTransportErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newSpotClient(binanceVenue, Options{BaseURL: base})
	_, err := c.FetchRecentCandles(context.Background(), "BTC/USDT", "1m", 10)

	var exErr *Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "fetch_candles", exErr.Op)
	assert.Zero(t, exErr.Status)
	assert.NotNil(t, exErr.Unwrap())
}

func TestSpotSandboxEndpoints(t *testing.T) {
	bin := newSpotClient(binanceVenue, Options{Sandbox: true})
	assert.Equal(t, binanceTestnetURL, bin.rest.baseURL)

	live := newSpotClient(binanceVenue, Options{})
	assert.Equal(t, binanceLiveURL, live.rest.baseURL)

	// no sandbox: falls back to live
	mx := newSpotClient(mexcVenue, Options{Sandbox: true})
	assert.Equal(t, mexcLiveURL, mx.rest.baseURL)
}

func TestMexcUsesOwnHeaderAndIntervals(t *testing.T) {
	c := newTestSpot(t, mexcVenue, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/klines":
			assert.Equal(t, "60m", r.URL.Query().Get("interval"))
			_, _ = w.Write([]byte(`[[1700000000000,"1","1","1","1","1",1700003599999,"1"]]`))
		case "/api/v3/account":
			assert.Equal(t, "key", r.Header.Get("X-MEXC-APIKEY"))
			assert.Empty(t, r.Header.Get("X-MBX-APIKEY"))
			_, _ = w.Write([]byte(`{"balances":[]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	_, err := c.FetchRecentCandles(context.Background(), "ETH/USDT", "1h", 5)
	require.NoError(t, err)
	_, err = c.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mexc", c.Name())
}

func TestMexcInterval(t *testing.T) {
	assert.Equal(t, "1m", mexcInterval("1m"))
	assert.Equal(t, "60m", mexcInterval("1h"))
	assert.Equal(t, "4h", mexcInterval("240m"))
	assert.Equal(t, "1W", mexcInterval("1w"))
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber("0.00100000")
	require.NoError(t, err)
	assert.Equal(t, 0.001, v)

	v, err = parseNumber("")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = parseNumber("abc")
	assert.Error(t, err)

	_, err = parseNumber(url.Values{})
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.001", formatAmount(0.001))
	assert.Equal(t, "0.00000012", formatAmount(0.00000012))
	assert.Equal(t, "2", formatAmount(2))
}
