package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sma_trader/pkg/tracing"
)

// venue payloads carry large integer ids and decimal strings; keep numbers as json.Number
var jsonAPI = sonic.Config{UseNumber: true}.Froze()

type restClient struct {
	venue   string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// do sends req, checks the status and decodes the body into out (nil skips decoding).
func (c *restClient) do(op string, req *http.Request, out any) error {
	span, _ := tracing.StartSpan(req.Context(), c.venue+"."+op)
	defer span.Finish()
	span.SetTag("http.method", req.Method)
	span.SetTag("http.path", req.URL.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		e := &Error{Exchange: c.venue, Op: op, Err: errors.Wrap(err, "do request")}
		tracing.Fail(span, e)
		return e
	}
	defer resp.Body.Close()
	span.SetTag("http.status_code", resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e := &Error{Exchange: c.venue, Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "read body")}
		tracing.Fail(span, e)
		return e
	}

	if resp.StatusCode/100 != 2 {
		e := &Error{Exchange: c.venue, Op: op, Status: resp.StatusCode, Msg: string(body)}
		var venueErr struct {
			Code any    `json:"code"`
			Msg  string `json:"msg"`
		}
		if jsonAPI.Unmarshal(body, &venueErr) == nil && venueErr.Code != nil {
			e.Code = fmt.Sprint(venueErr.Code)
			e.Msg = venueErr.Msg
		}
		c.log.Debug("exchange request failed",
			zap.String("exchange", c.venue), zap.String("op", op),
			zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		tracing.Fail(span, e)
		return e
	}

	if out == nil {
		return nil
	}
	if err := jsonAPI.Unmarshal(body, out); err != nil {
		e := &Error{Exchange: c.venue, Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
		tracing.Fail(span, e)
		return e
	}
	return nil
}

// parseNumber accepts the shapes venues use for numeric fields: decimal strings and JSON numbers.
func parseNumber(v any) (float64, error) {
	var s string
	switch n := v.(type) {
	case string:
		s = n
	case json.Number:
		s = n.String()
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	default:
		return 0, errors.Errorf("unexpected numeric value %v (%T)", v, v)
	}
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse number %q", s)
	}
	return d.InexactFloat64(), nil
}

// formatAmount renders an order size without exponent notation.
func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).String()
}
