package exchange

import "sma_trader/internal/helper"

const mexcLiveURL = "https://api.mexc.com"

// MEXC spot mirrors the Binance v3 API; it differs in the key header and a few interval names.
var mexcVenue = spotVenue{
	name:       "mexc",
	liveURL:    mexcLiveURL,
	keyHeader:  "X-MEXC-APIKEY",
	maxCandles: spotMaxCandles,
	interval:   mexcInterval,
}

func NewMexc(opts Options) (Exchange, error) {
	return newSpotClient(mexcVenue, opts), nil
}

func mexcInterval(tf string) string {
	switch tf = helper.NormTF(tf); tf {
	case "1h":
		return "60m"
	case "1w":
		return "1W"
	default:
		return tf
	}
}
