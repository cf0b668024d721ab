// Package market wires the feed manager, the snapshot fetcher and the
// reconciler into one service per deployment: it owns the currently selected
// (symbol, interval), keeps the view store continuously updated, and exposes
// the symbol/interval selection entry points the API layer calls.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/crop-up-dev/hub/config"
	"github.com/crop-up-dev/hub/internal/market/feed"
	"github.com/crop-up-dev/hub/internal/market/reconcile"
	"github.com/crop-up-dev/hub/internal/market/view"
	"github.com/crop-up-dev/hub/pkg/binance"

	"go.uber.org/zap"
)

// ErrUnsupportedSymbol is returned when a selection names a pair outside the
// configured supported set.
var ErrUnsupportedSymbol = errors.New("unsupported symbol")

// Fetcher is the one-shot historical-candles request. *binance.RESTClient
// satisfies it.
type Fetcher interface {
	GetKlines(ctx context.Context, symbol string, interval binance.Interval, limit int) ([]binance.Kline, error)
}

type Service struct {
	logger     *zap.Logger
	rest       Fetcher
	feeds      *feed.Manager
	store      *view.Store
	depth      int
	klineLimit int
	supported  map[string]bool
	symbols    []string

	mu       sync.Mutex
	symbol   string // uppercase, e.g. "BTCUSDT"
	interval binance.Interval
	subs     []*feed.Subscription
}

func NewService(cfg config.MarketConfig, rest Fetcher, feeds *feed.Manager, logger *zap.Logger) (*Service, error) {
	interval, err := binance.ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}

	supported := make(map[string]bool, len(cfg.Symbols))
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		s = strings.ToUpper(s)
		supported[s] = true
		symbols = append(symbols, s)
	}

	symbol := strings.ToUpper(cfg.Symbol)
	if !supported[symbol] {
		return nil, fmt.Errorf("default symbol %s not in supported set", symbol)
	}

	return &Service{
		logger:     logger,
		rest:       rest,
		feeds:      feeds,
		store:      view.NewStore(cfg.TradeCap),
		depth:      cfg.Depth,
		klineLimit: cfg.KlineLimit,
		supported:  supported,
		symbols:    symbols,
		symbol:     symbol,
		interval:   interval,
	}, nil
}

// Start fetches the initial candle history and opens the four live streams
// for the default selection.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	symbol, interval := s.symbol, s.interval
	s.mu.Unlock()

	fetchErr := s.refreshCandles(ctx, symbol, interval)
	if err := s.resume(symbol, interval); err != nil {
		return err
	}
	return fetchErr
}

// Stop releases all live subscriptions.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Symbol returns the currently selected pair.
func (s *Service) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

// Interval returns the currently selected kline interval.
func (s *Service) Interval() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.interval)
}

// Symbols returns the supported pairs.
func (s *Service) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s *Service) Ticker() view.TickerSnapshot { return s.store.Ticker() }
func (s *Service) OrderBook() view.OrderBook   { return s.store.OrderBook() }
func (s *Service) Candles() []view.Candle      { return s.store.Candles() }
func (s *Service) Trades() []view.RecentTrade  { return s.store.Trades() }

// SetSymbol switches every feed to a new pair. The old subscriptions are
// released and all accumulated state is discarded before the new snapshot
// fetch begins, so data for the old pair never appears under the new one.
// A snapshot failure is returned to the caller but streaming still resumes;
// the candle widget starts empty.
func (s *Service) SetSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !s.supported[symbol] {
		return fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}

	s.mu.Lock()
	if symbol == s.symbol {
		s.mu.Unlock()
		return nil
	}
	s.teardownLocked()
	s.symbol = symbol
	interval := s.interval
	// Reset under the selection lock: merges hold it across guard+apply, so
	// nothing tagged for the old pair can land after this point.
	s.store.Reset()
	s.mu.Unlock()

	s.logger.Info("symbol selected", zap.String("symbol", symbol))

	fetchErr := s.refreshCandles(ctx, symbol, interval)
	if err := s.resume(symbol, interval); err != nil {
		return err
	}
	return fetchErr
}

// SetInterval switches the kline granularity. Only the candle stream is
// rebuilt; ticker, order book and trades keep flowing.
func (s *Service) SetInterval(ctx context.Context, raw string) error {
	interval, err := binance.ParseInterval(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if interval == s.interval {
		s.mu.Unlock()
		return nil
	}
	// Rebuilding everything keeps the teardown/resume path single; the
	// shared feed manager redials only the kline topic's connection anyway
	// once the other three resubscribe.
	s.teardownLocked()
	s.interval = interval
	symbol := s.symbol
	s.store.ResetCandles()
	s.mu.Unlock()

	s.logger.Info("interval selected", zap.String("interval", string(interval)))

	fetchErr := s.refreshCandles(ctx, symbol, interval)
	if err := s.resume(symbol, interval); err != nil {
		return err
	}
	return fetchErr
}

// refreshCandles fetches history and installs it only if the selection is
// still current when the response arrives. A response for a superseded
// (symbol, interval) is discarded, never merged.
func (s *Service) refreshCandles(ctx context.Context, symbol string, interval binance.Interval) error {
	klines, err := s.rest.GetKlines(ctx, symbol, interval, s.klineLimit)
	if err != nil {
		s.logger.Warn("candle snapshot failed",
			zap.String("symbol", symbol), zap.String("interval", string(interval)), zap.Error(err))
		return err
	}

	candles := make([]view.Candle, len(klines))
	for i, k := range klines {
		candles[i] = view.Candle{
			OpenTime: k.OpenTime,
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		}
	}

	s.applyForSelection(symbol, interval, func() {
		s.store.SetCandles(candles)
	})
	return nil
}

// resume opens the four streams for the selection unless it has been
// superseded in the meantime.
func (s *Service) resume(symbol string, interval binance.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.symbol != symbol || s.interval != interval {
		return nil
	}

	lower := strings.ToLower(symbol)
	channels := []struct {
		name    string
		consume func(*feed.Subscription, string, binance.Interval)
	}{
		{"ticker", s.consumeTicker},
		{fmt.Sprintf("depth%d@100ms", s.depth), s.consumeDepth},
		{fmt.Sprintf("kline_%s", interval), s.consumeKlines},
		{"trade", s.consumeTrades},
	}

	for _, ch := range channels {
		sub, err := s.feeds.Subscribe(lower, ch.name)
		if err != nil {
			s.teardownLocked()
			return err
		}
		s.subs = append(s.subs, sub)
		go ch.consume(sub, symbol, interval)
	}

	return nil
}

// teardownLocked releases all subscriptions. Caller holds s.mu.
func (s *Service) teardownLocked() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
}

// applyForSelection runs the merge only if (symbol, interval) is still the
// active selection, holding the selection lock across guard and apply so a
// frame from a superseded subscription can never land after the switch has
// reset the store.
func (s *Service) applyForSelection(symbol string, interval binance.Interval, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbol != symbol || s.interval != interval {
		return
	}
	apply()
}

// applyForSymbol is the guard for data kinds that do not depend on the
// kline interval.
func (s *Service) applyForSymbol(symbol string, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbol != symbol {
		return
	}
	apply()
}

func (s *Service) consumeTicker(sub *feed.Subscription, symbol string, _ binance.Interval) {
	for raw := range sub.C {
		t, err := reconcile.ParseTicker(raw)
		if err != nil {
			s.logger.Warn("dropping ticker frame", zap.String("topic", sub.Topic), zap.Error(err))
			continue
		}
		s.applyForSymbol(symbol, func() {
			s.store.ApplyTicker(t)
		})
	}
}

func (s *Service) consumeDepth(sub *feed.Subscription, symbol string, _ binance.Interval) {
	for raw := range sub.C {
		book, err := reconcile.ParseOrderBook(raw, s.depth)
		if err != nil {
			s.logger.Warn("dropping depth frame", zap.String("topic", sub.Topic), zap.Error(err))
			continue
		}
		s.applyForSymbol(symbol, func() {
			s.store.ApplyOrderBook(book)
		})
	}
}

func (s *Service) consumeKlines(sub *feed.Subscription, symbol string, interval binance.Interval) {
	for raw := range sub.C {
		c, err := reconcile.ParseCandle(raw)
		if err != nil {
			s.logger.Warn("dropping kline frame", zap.String("topic", sub.Topic), zap.Error(err))
			continue
		}
		s.applyForSelection(symbol, interval, func() {
			s.store.ApplyCandle(c)
		})
	}
}

func (s *Service) consumeTrades(sub *feed.Subscription, symbol string, _ binance.Interval) {
	for raw := range sub.C {
		t, err := reconcile.ParseTrade(raw)
		if err != nil {
			s.logger.Warn("dropping trade frame", zap.String("topic", sub.Topic), zap.Error(err))
			continue
		}
		s.applyForSymbol(symbol, func() {
			s.store.ApplyTrade(t)
		})
	}
}
