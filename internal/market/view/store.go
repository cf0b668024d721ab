package view

import "sync"

// Store holds the latest reconciled state per data kind. All mutation goes
// through the Apply/Set methods; readers get copies and never see a write in
// progress. Each data kind has its own lock so independent feeds don't
// contend with each other.
type Store struct {
	tickerMu  sync.RWMutex
	ticker    Ticker
	prevPrice float64

	bookMu sync.RWMutex
	book   OrderBook

	candleMu sync.RWMutex
	candles  []Candle

	tradeMu  sync.RWMutex
	trades   []RecentTrade
	tradeCap int
}

func NewStore(tradeCap int) *Store {
	return &Store{tradeCap: tradeCap}
}

// ApplyTicker replaces the ticker, retaining the outgoing price for
// direction comparisons.
func (s *Store) ApplyTicker(t Ticker) {
	s.tickerMu.Lock()
	defer s.tickerMu.Unlock()

	s.prevPrice = s.ticker.Price
	s.ticker = t
}

func (s *Store) Ticker() TickerSnapshot {
	s.tickerMu.RLock()
	defer s.tickerMu.RUnlock()

	return TickerSnapshot{
		Ticker:    s.ticker,
		PrevPrice: s.prevPrice,
		Direction: classify(s.prevPrice, s.ticker.Price),
	}
}

func classify(prev, cur float64) Direction {
	switch {
	case cur > prev:
		return DirectionUp
	case cur < prev:
		return DirectionDown
	default:
		return DirectionSame
	}
}

// ApplyOrderBook replaces both sides with an already-reconciled book.
func (s *Store) ApplyOrderBook(book OrderBook) {
	s.bookMu.Lock()
	defer s.bookMu.Unlock()
	s.book = book
}

func (s *Store) OrderBook() OrderBook {
	s.bookMu.RLock()
	defer s.bookMu.RUnlock()

	cp := OrderBook{
		Bids:          make([]OrderBookLevel, len(s.book.Bids)),
		Asks:          make([]OrderBookLevel, len(s.book.Asks)),
		Spread:        s.book.Spread,
		SpreadPercent: s.book.SpreadPercent,
	}
	copy(cp.Bids, s.book.Bids)
	copy(cp.Asks, s.book.Asks)
	return cp
}

// SetCandles installs a freshly fetched historical sequence, replacing
// whatever was there.
func (s *Store) SetCandles(candles []Candle) {
	s.candleMu.Lock()
	defer s.candleMu.Unlock()

	s.candles = make([]Candle, len(candles))
	copy(s.candles, candles)
}

// ApplyCandle folds one streamed kline into the sequence: if its open time
// matches the last element, that element is still forming and is overwritten
// in place; otherwise the candle is appended.
func (s *Store) ApplyCandle(c Candle) {
	s.candleMu.Lock()
	defer s.candleMu.Unlock()

	n := len(s.candles)
	if n > 0 && s.candles[n-1].OpenTime == c.OpenTime {
		s.candles[n-1] = c
		return
	}
	s.candles = append(s.candles, c)
}

func (s *Store) Candles() []Candle {
	s.candleMu.RLock()
	defer s.candleMu.RUnlock()

	cp := make([]Candle, len(s.candles))
	copy(cp, s.candles)
	return cp
}

// ApplyTrade prepends a trade and truncates the list to the configured cap.
func (s *Store) ApplyTrade(t RecentTrade) {
	s.tradeMu.Lock()
	defer s.tradeMu.Unlock()

	trades := make([]RecentTrade, 0, len(s.trades)+1)
	trades = append(trades, t)
	trades = append(trades, s.trades...)
	if s.tradeCap > 0 && len(trades) > s.tradeCap {
		trades = trades[:s.tradeCap]
	}
	s.trades = trades
}

func (s *Store) Trades() []RecentTrade {
	s.tradeMu.RLock()
	defer s.tradeMu.RUnlock()

	cp := make([]RecentTrade, len(s.trades))
	copy(cp, s.trades)
	return cp
}

// Reset discards all accumulated state. Called on symbol change so data for
// the old pair never leaks into the new one.
func (s *Store) Reset() {
	s.tickerMu.Lock()
	s.ticker = Ticker{}
	s.prevPrice = 0
	s.tickerMu.Unlock()

	s.bookMu.Lock()
	s.book = OrderBook{}
	s.bookMu.Unlock()

	s.ResetCandles()

	s.tradeMu.Lock()
	s.trades = nil
	s.tradeMu.Unlock()
}

// ResetCandles discards only the candle sequence. Called on interval change.
func (s *Store) ResetCandles() {
	s.candleMu.Lock()
	s.candles = nil
	s.candleMu.Unlock()
}
