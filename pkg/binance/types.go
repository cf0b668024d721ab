package binance

import "encoding/json"

// Binance stream payloads carry numeric values as strings. These types map
// the raw JSON of each channel; parsing into numeric view types happens in
// the reconciler.

// TickerEvent is one message from the <symbol>@ticker stream (24hr rolling
// window statistics).
type TickerEvent struct {
	Symbol             string `json:"s"`
	LastPrice          string `json:"c"`
	PriceChange        string `json:"p"`
	PriceChangePercent string `json:"P"`
	HighPrice          string `json:"h"`
	LowPrice           string `json:"l"`
	Volume             string `json:"v"`
	QuoteVolume        string `json:"q"`
}

// DepthEvent is one message from the <symbol>@depth<N> partial book stream.
// That stream pushes absolute top-N snapshots, not incremental diffs.
// Partial streams use the long field names; the payload keeps the short
// aliases too so both shapes decode.
type DepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
	B            [][]string `json:"b"`
	A            [][]string `json:"a"`
}

// BidLevels returns whichever bid field the payload populated.
func (e *DepthEvent) BidLevels() [][]string {
	if len(e.Bids) > 0 {
		return e.Bids
	}
	return e.B
}

// AskLevels returns whichever ask field the payload populated.
func (e *DepthEvent) AskLevels() [][]string {
	if len(e.Asks) > 0 {
		return e.Asks
	}
	return e.A
}

// KlineEvent is one message from the <symbol>@kline_<interval> stream.
type KlineEvent struct {
	Event  string       `json:"e"`
	Symbol string       `json:"s"`
	Kline  KlinePayload `json:"k"`
}

type KlinePayload struct {
	StartTime int64  `json:"t"` // interval open time, ms since epoch
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Final     bool   `json:"x"` // true once the interval has closed
}

// TradeEvent is one message from the <symbol>@trade stream.
type TradeEvent struct {
	Event        string `json:"e"`
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
	TradeTime    int64  `json:"T"` // ms since epoch
}

// KlineRow is one row of the REST /api/v3/klines response: a fixed-width
// tuple of mixed number and string fields.
type KlineRow []json.RawMessage

// Kline is one parsed historical candle, open time in unix seconds.
type Kline struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
