package models

// Side is the direction of a strategy signal or an order: "BUY"/"SELL" or an empty string.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

// Lower is the side as most REST APIs spell it ("buy"/"sell").
func (s Side) Lower() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return ""
	}
}
