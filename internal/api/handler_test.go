package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crop-up-dev/hub/internal/account"
	"github.com/crop-up-dev/hub/internal/market"
	"github.com/crop-up-dev/hub/internal/market/view"
	"github.com/crop-up-dev/hub/internal/trading"
	"github.com/crop-up-dev/hub/pkg/binance"
	"github.com/crop-up-dev/hub/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMarket struct {
	symbol       string
	interval     string
	symbols      []string
	ticker       view.TickerSnapshot
	setErr       error
	lastSymbol   string
	lastInterval string
}

func (m *fakeMarket) Symbol() string              { return m.symbol }
func (m *fakeMarket) Interval() string            { return m.interval }
func (m *fakeMarket) Symbols() []string           { return m.symbols }
func (m *fakeMarket) Ticker() view.TickerSnapshot { return m.ticker }
func (m *fakeMarket) OrderBook() view.OrderBook   { return view.OrderBook{} }
func (m *fakeMarket) Candles() []view.Candle      { return nil }
func (m *fakeMarket) Trades() []view.RecentTrade  { return nil }

func (m *fakeMarket) SetSymbol(_ context.Context, symbol string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.lastSymbol = symbol
	m.symbol = strings.ToUpper(symbol)
	return nil
}

func (m *fakeMarket) SetInterval(_ context.Context, interval string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.lastInterval = interval
	m.interval = interval
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeMarket, *account.Service) {
	t.Helper()

	store := storage.NewMemoryStore()
	m := &fakeMarket{
		symbol:   "BTCUSDT",
		interval: "1h",
		symbols:  []string{"BTCUSDT", "ETHUSDT"},
		ticker:   view.TickerSnapshot{Ticker: view.Ticker{Price: 42000}, Direction: view.DirectionUp},
	}
	accounts := account.NewService(store)
	h := NewHandler(m, trading.NewRepository(store), accounts,
		account.NewProfileRepository(store), zap.NewNop())

	return h.Router(), m, accounts
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_GetTicker(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/market/ticker", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snap view.TickerSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 42000.0, snap.Price)
	assert.Equal(t, view.DirectionUp, snap.Direction)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeaderKey))
}

func TestHandler_PutSymbol(t *testing.T) {
	router, m, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPut, "/market/symbol", `{"symbol":"ETHUSDT"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ETHUSDT", m.lastSymbol)

	w = doJSON(router, http.MethodPut, "/market/symbol", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_PutSymbolErrors(t *testing.T) {
	router, m, _ := newTestRouter(t)

	m.setErr = fmt.Errorf("%w: DOGEUSDT", market.ErrUnsupportedSymbol)
	w := doJSON(router, http.MethodPut, "/market/symbol", `{"symbol":"DOGEUSDT"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.setErr = &binance.FetchError{Op: "klines", Err: fmt.Errorf("timeout")}
	w = doJSON(router, http.MethodPut, "/market/symbol", `{"symbol":"ETHUSDT"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_PutInterval(t *testing.T) {
	router, m, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPut, "/market/interval", `{"interval":"5m"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5m", m.lastInterval)
}

func TestHandler_PostOrder(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/orders",
		`{"side":"buy","type":"market","price":50,"amount":2}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var p trading.Portfolio
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 9900.0, p.QuoteBalance)
	assert.Equal(t, 2.0, p.BaseBalance)
	require.Len(t, p.Trades, 1)
	assert.Equal(t, "BTCUSDT", p.Trades[0].Pair)
}

func TestHandler_PostOrderInsufficientBalance(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/orders",
		`{"side":"buy","type":"market","price":10001,"amount":1}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_PostOrderValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	cases := []string{
		`{"side":"hold","type":"market","price":50,"amount":1}`,
		`{"side":"buy","type":"stop","price":50,"amount":1}`,
		`{"side":"buy","type":"market","price":-1,"amount":1}`,
		`{"side":"buy","type":"market","price":50}`,
	}
	for _, body := range cases {
		w := doJSON(router, http.MethodPost, "/orders", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestHandler_AccountFlow(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/account/register",
		`{"email":"alice@example.com","password":"secret1","displayName":"Alice"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var user account.AuthUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Empty(t, user.Password, "password must never leave the service")

	w = doJSON(router, http.MethodPost, "/account/register",
		`{"email":"alice@example.com","password":"other1","displayName":"Alice 2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/account/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/account/login",
		`{"email":"alice@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/account/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/account/logout", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/account/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_GetPortfolioHistory(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/portfolio/history", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		BalanceHistory []trading.BalanceSample `json:"balanceHistory"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.BalanceHistory, 1, "fresh portfolio starts with one sample")
	assert.Equal(t, 10000.0, resp.BalanceHistory[0].Balance)

	w = doJSON(router, http.MethodPost, "/orders",
		`{"side":"buy","type":"market","price":50,"amount":2}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/portfolio/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.BalanceHistory, 2, "each execution appends a sample")
	assert.Equal(t, 10000.0, resp.BalanceHistory[1].Balance, "9900 quote + 2 base * 50 at execution price")
}

func TestHandler_AdminUserManagement(t *testing.T) {
	router, _, accounts := newTestRouter(t)
	ctx := context.Background()

	alice, err := accounts.Register(ctx, "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)
	_, err = accounts.Register(ctx, "bob@example.com", "secret1", "Bob")
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/account/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Users []account.AuthUser `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Users, 2)
	for _, u := range listResp.Users {
		assert.Empty(t, u.Password, "listing must not leak stored passwords")
	}

	w = doJSON(router, http.MethodPut, "/account/users/"+alice.ID+"/role", `{"role":"admin"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	users, err := accounts.AllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, users[0].Role)

	w = doJSON(router, http.MethodPut, "/account/users/"+alice.ID+"/active", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(router, http.MethodPost, "/account/login",
		`{"email":"alice@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code, "deactivated via the admin route")

	w = doJSON(router, http.MethodDelete, "/account/users/"+alice.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	users, err = accounts.AllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestHandler_AdminUserManagementErrors(t *testing.T) {
	router, _, accounts := newTestRouter(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)

	w := doJSON(router, http.MethodPut, "/account/users/missing/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, "/account/users/missing/active", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, "/account/users/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, "/account/users/"+user.ID+"/role", `{"role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "role must be user or admin")
}

func TestHandler_DisabledAccountLogin(t *testing.T) {
	router, _, accounts := newTestRouter(t)
	ctx := context.Background()

	user, err := accounts.Register(ctx, "bob@example.com", "secret1", "Bob")
	require.NoError(t, err)
	require.NoError(t, accounts.ToggleActive(ctx, user.ID))

	w := doJSON(router, http.MethodPost, "/account/login",
		`{"email":"bob@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_ProfileRoundTrip(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/account/profile", "")
	require.Equal(t, http.StatusOK, w.Code)

	var p account.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Trader", p.DisplayName)

	p.DisplayName = "Satoshi"
	body, err := json.Marshal(p)
	require.NoError(t, err)
	w = doJSON(router, http.MethodPut, "/account/profile", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/account/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Satoshi", p.DisplayName)
}

func TestHandler_Health(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
