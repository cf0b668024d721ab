// Package reconcile folds raw stream frames into view types, one merge
// policy per data kind. A frame that fails to parse is reported as an error
// and merged as a no-op; it never reaches the view store with partial fields.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/crop-up-dev/hub/internal/market/view"
	"github.com/crop-up-dev/hub/pkg/binance"
)

// ParseTicker converts one ticker frame into a full-replace ticker value.
func ParseTicker(raw []byte) (view.Ticker, error) {
	var ev binance.TickerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return view.Ticker{}, fmt.Errorf("ticker frame: %w", err)
	}

	var t view.Ticker
	for _, f := range []struct {
		name string
		src  string
		dst  *float64
	}{
		{"lastPrice", ev.LastPrice, &t.Price},
		{"priceChange", ev.PriceChange, &t.PriceChange},
		{"priceChangePercent", ev.PriceChangePercent, &t.PriceChangePercent},
		{"high", ev.HighPrice, &t.High},
		{"low", ev.LowPrice, &t.Low},
		{"volume", ev.Volume, &t.Volume},
		{"quoteVolume", ev.QuoteVolume, &t.QuoteVolume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return view.Ticker{}, fmt.Errorf("ticker %s %q: %w", f.name, f.src, err)
		}
		*f.dst = v
	}

	return t, nil
}

// ParseOrderBook converts one partial-depth frame into a depth-bounded book
// with cumulative totals. Bids keep the feed's best-first order. Asks are
// reversed so index 0 is the worst ask and the last index the best, which
// puts the best ask adjacent to the spread in a stacked rendering.
func ParseOrderBook(raw []byte, depth int) (view.OrderBook, error) {
	var ev binance.DepthEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return view.OrderBook{}, fmt.Errorf("depth frame: %w", err)
	}

	bids, err := buildSide(ev.BidLevels(), depth, false)
	if err != nil {
		return view.OrderBook{}, fmt.Errorf("bids: %w", err)
	}
	asks, err := buildSide(ev.AskLevels(), depth, true)
	if err != nil {
		return view.OrderBook{}, fmt.Errorf("asks: %w", err)
	}

	book := view.OrderBook{Bids: bids, Asks: asks}

	if len(bids) > 0 && len(asks) > 0 {
		bestBid := bids[0].Price
		bestAsk := asks[len(asks)-1].Price
		book.Spread = bestAsk - bestBid
		if bestAsk != 0 {
			book.SpreadPercent = book.Spread / bestAsk * 100
		}
	}

	return book, nil
}

// buildSide takes up to depth [price, quantity] string pairs in the feed's
// best-first order and computes running totals in iteration order. With
// reverse set, iteration runs worst-to-best so totals accumulate toward the
// spread.
func buildSide(levels [][]string, depth int, reverse bool) ([]view.OrderBookLevel, error) {
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}

	out := make([]view.OrderBookLevel, len(levels))
	cum := 0.0

	for i := range levels {
		src := levels[i]
		if reverse {
			src = levels[len(levels)-1-i]
		}
		if len(src) < 2 {
			return nil, fmt.Errorf("level %d: expected [price, quantity]", i)
		}

		price, err := strconv.ParseFloat(src[0], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d price %q: %w", i, src[0], err)
		}
		quantity, err := strconv.ParseFloat(src[1], 64)
		if err != nil {
			return nil, fmt.Errorf("level %d quantity %q: %w", i, src[1], err)
		}

		cum += quantity
		out[i] = view.OrderBookLevel{Price: price, Quantity: quantity, Total: cum}
	}

	return out, nil
}

// ParseCandle converts one kline frame into a candle keyed by open time
// (unix seconds). The store decides whether it overwrites the forming last
// candle or appends.
func ParseCandle(raw []byte) (view.Candle, error) {
	var ev binance.KlineEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return view.Candle{}, fmt.Errorf("kline frame: %w", err)
	}

	k := ev.Kline
	if k.StartTime == 0 {
		return view.Candle{}, fmt.Errorf("kline frame: missing payload")
	}

	c := view.Candle{OpenTime: k.StartTime / 1000}
	for _, f := range []struct {
		name string
		src  string
		dst  *float64
	}{
		{"open", k.Open, &c.Open},
		{"high", k.High, &c.High},
		{"low", k.Low, &c.Low},
		{"close", k.Close, &c.Close},
		{"volume", k.Volume, &c.Volume},
	} {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return view.Candle{}, fmt.Errorf("kline %s %q: %w", f.name, f.src, err)
		}
		*f.dst = v
	}

	return c, nil
}

// ParseTrade converts one trade frame. The maker/taker side comes straight
// from the feed flag and is never recomputed.
func ParseTrade(raw []byte) (view.RecentTrade, error) {
	var ev binance.TradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return view.RecentTrade{}, fmt.Errorf("trade frame: %w", err)
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return view.RecentTrade{}, fmt.Errorf("trade price %q: %w", ev.Price, err)
	}
	quantity, err := strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return view.RecentTrade{}, fmt.Errorf("trade quantity %q: %w", ev.Quantity, err)
	}

	return view.RecentTrade{
		Price:        price,
		Quantity:     quantity,
		IsBuyerMaker: ev.IsBuyerMaker,
		Time:         ev.TradeTime,
	}, nil
}
