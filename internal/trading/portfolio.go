// Package trading implements the paper-trading ledger: a virtual portfolio
// that buys and sells against live prices without moving real funds.
package trading

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned when a buy's cost exceeds the available
// quote balance or a sell's amount exceeds the available base balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Trade is one executed paper trade. Records are immutable once appended.
type Trade struct {
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"` // ms since epoch
	Pair      string    `json:"pair"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Total     float64   `json:"total"`
}

// BalanceSample is one point of the portfolio-value history, taken at trade
// execution using the execution price.
type BalanceSample struct {
	Timestamp int64   `json:"timestamp"` // ms since epoch
	Balance   float64 `json:"balance"`
}

// Portfolio is the full paper-trading state for one pair: virtual balances,
// trade history (newest first) and the balance-history curve.
type Portfolio struct {
	QuoteBalance   float64         `json:"usdtBalance"`
	BaseBalance    float64         `json:"btcBalance"`
	Trades         []Trade         `json:"trades"`
	BalanceHistory []BalanceSample `json:"balanceHistory"`
}

const defaultQuoteBalance = 10000

// DefaultPortfolio is the starting state for a fresh account.
func DefaultPortfolio() Portfolio {
	return Portfolio{
		QuoteBalance: defaultQuoteBalance,
		BalanceHistory: []BalanceSample{
			{Timestamp: time.Now().UnixMilli(), Balance: defaultQuoteBalance},
		},
	}
}

// ExecuteTrade applies one simulated order and returns the resulting
// portfolio. The input portfolio is never mutated; persistence of the result
// is up to the caller. Fails with ErrInsufficientBalance when the buy cost
// exceeds the quote balance or the sell amount exceeds the base balance.
func ExecuteTrade(p Portfolio, pair string, side Side, orderType OrderType, price, amount float64) (Portfolio, error) {
	total := price * amount
	next := p

	switch side {
	case SideBuy:
		if total > p.QuoteBalance {
			return Portfolio{}, ErrInsufficientBalance
		}
		next.QuoteBalance = p.QuoteBalance - total
		next.BaseBalance = p.BaseBalance + amount
	case SideSell:
		if amount > p.BaseBalance {
			return Portfolio{}, ErrInsufficientBalance
		}
		next.QuoteBalance = p.QuoteBalance + total
		next.BaseBalance = p.BaseBalance - amount
	default:
		return Portfolio{}, errors.New("unknown trade side")
	}

	now := time.Now().UnixMilli()
	trade := Trade{
		ID:        uuid.NewString(),
		Timestamp: now,
		Pair:      pair,
		Side:      side,
		Type:      orderType,
		Price:     price,
		Amount:    amount,
		Total:     total,
	}

	next.Trades = make([]Trade, 0, len(p.Trades)+1)
	next.Trades = append(next.Trades, trade)
	next.Trades = append(next.Trades, p.Trades...)

	totalValue := next.QuoteBalance + next.BaseBalance*price
	next.BalanceHistory = make([]BalanceSample, 0, len(p.BalanceHistory)+1)
	next.BalanceHistory = append(next.BalanceHistory, p.BalanceHistory...)
	next.BalanceHistory = append(next.BalanceHistory, BalanceSample{Timestamp: now, Balance: totalValue})

	return next, nil
}

// AverageEntryPrice is the amount-weighted average price over buy trades.
func AverageEntryPrice(trades []Trade) float64 {
	var totalCost, totalAmount float64
	for _, t := range trades {
		if t.Side != SideBuy {
			continue
		}
		totalCost += t.Total
		totalAmount += t.Amount
	}

	if totalAmount == 0 {
		return 0
	}
	return totalCost / totalAmount
}
