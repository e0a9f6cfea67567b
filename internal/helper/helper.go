package helper

import (
	"strings"
)

// NormTF brings timeframe spellings to one form: "60m" and "1H" become "1h", "candle5m" becomes "5m".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// SplitSymbol splits "BTC/USDT" into base and quote.
func SplitSymbol(symbol string) (base string, quote string, ok bool) {
	i := strings.IndexByte(symbol, '/')
	if i <= 0 || i >= len(symbol)-1 {
		return "", "", false
	}

	base = strings.ToUpper(strings.TrimSpace(symbol[:i]))
	quote = strings.ToUpper(strings.TrimSpace(symbol[i+1:]))
	if base == "" || quote == "" || strings.Contains(quote, "/") {
		return "", "", false
	}
	return base, quote, true
}

// VenueSymbol rewrites "BTC/USDT" with the venue separator: "BTCUSDT" for sep "", "BTC-USDT" for "-".
func VenueSymbol(symbol, sep string) (string, bool) {
	base, quote, ok := SplitSymbol(symbol)
	if !ok {
		return "", false
	}
	return base + sep + quote, true
}
