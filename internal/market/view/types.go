package view

// Ticker is the last-known 24h rolling statistics for a symbol. Each streamed
// ticker message fully replaces the previous value.
type Ticker struct {
	Price              float64 `json:"price"`
	PriceChange        float64 `json:"priceChange"`
	PriceChangePercent float64 `json:"priceChangePercent"`
	High               float64 `json:"high"`
	Low                float64 `json:"low"`
	Volume             float64 `json:"volume"`
	QuoteVolume        float64 `json:"quoteVolume"`
}

// Direction classifies a price move relative to the previous ticker price.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// TickerSnapshot is what readers see: the current ticker plus the price it
// replaced, for up/down coloring in the presentation layer.
type TickerSnapshot struct {
	Ticker
	PrevPrice float64   `json:"prevPrice"`
	Direction Direction `json:"direction"`
}

// OrderBookLevel is a single price level. Total is the running sum of
// quantity over levels ordered by increasing distance from the best price.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

// OrderBook holds both depth-bounded sides. Bids are ordered best-first.
// Asks are ordered worst-first so the best ask renders adjacent to the
// spread row in a stacked layout.
type OrderBook struct {
	Bids          []OrderBookLevel `json:"bids"`
	Asks          []OrderBookLevel `json:"asks"`
	Spread        float64          `json:"spread"`
	SpreadPercent float64          `json:"spreadPercent"`
}

// Candle is one kline keyed by OpenTime (unix seconds). In a candle sequence
// the last element may still be forming and is updated in place; all earlier
// elements are immutable.
type Candle struct {
	OpenTime int64   `json:"time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// RecentTrade is one public trade from the trade stream. IsBuyerMaker comes
// straight from the feed: true means the aggressor sold into a resting bid.
type RecentTrade struct {
	Price        float64 `json:"price"`
	Quantity     float64 `json:"qty"`
	IsBuyerMaker bool    `json:"isBuyerMaker"`
	Time         int64   `json:"time"`
}
