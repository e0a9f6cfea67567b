package models

import "strings"

type Asset struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// Balance is an account snapshot keyed by upper-case currency code.
type Balance map[string]Asset

// Free returns the free amount of ccy; ok is false when the venue reported nothing for it.
func (b Balance) Free(ccy string) (float64, bool) {
	a, ok := b[strings.ToUpper(ccy)]
	if !ok {
		return 0, false
	}
	return a.Free, true
}
