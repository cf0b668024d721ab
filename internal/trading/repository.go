package trading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crop-up-dev/hub/pkg/storage"
)

const portfolioKey = "btc-trading-portfolio"

// Repository loads and saves the portfolio snapshot through the storage
// backend. Executing a trade is the only path that writes.
type Repository struct {
	store storage.Store
}

func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load returns the persisted portfolio, or the default starting portfolio
// when none has been saved yet.
func (r *Repository) Load(ctx context.Context) (Portfolio, error) {
	data, err := r.store.Load(ctx, portfolioKey)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultPortfolio(), nil
	}
	if err != nil {
		return Portfolio{}, fmt.Errorf("load portfolio: %w", err)
	}

	var p Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return Portfolio{}, fmt.Errorf("decode portfolio: %w", err)
	}
	return p, nil
}

func (r *Repository) Save(ctx context.Context, p Portfolio) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}
	if err := r.store.Save(ctx, portfolioKey, data); err != nil {
		return fmt.Errorf("save portfolio: %w", err)
	}
	return nil
}

// Execute runs one paper trade against the persisted portfolio and stores
// the resulting snapshot.
func (r *Repository) Execute(ctx context.Context, pair string, side Side, orderType OrderType, price, amount float64) (Portfolio, error) {
	current, err := r.Load(ctx)
	if err != nil {
		return Portfolio{}, err
	}

	next, err := ExecuteTrade(current, pair, side, orderType, price, amount)
	if err != nil {
		return Portfolio{}, err
	}

	if err := r.Save(ctx, next); err != nil {
		return Portfolio{}, err
	}
	return next, nil
}
