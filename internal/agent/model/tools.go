package model

// PriceItem is one offer returned by the price comparison backend.
type PriceItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Vendor    string  `json:"vendor"`
	Location  string  `json:"location,omitempty"`
	Source    string  `json:"source"`
}

type PriceComparison struct {
	Items   []PriceItem `json:"items"`
	Summary string      `json:"summary"`
}

type Quote struct {
	Ticker    string  `json:"ticker"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	ChangePct float64 `json:"change_pct"`
	Source    string  `json:"source"`
}

type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type NewsItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Summary string `json:"summary,omitempty"`
}

// FinanceBundle is the single-ticker payload: quote, recent candles and news.
type FinanceBundle struct {
	Quote   *Quote     `json:"quote"`
	History []Candle   `json:"history"`
	News    []NewsItem `json:"news"`
}

type GainerStock struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
}

type TopGainers struct {
	Stocks    []GainerStock `json:"stocks"`
	Source    string        `json:"source"`
	Timestamp string        `json:"timestamp,omitempty"`
}
