package api

import (
	"errors"
	"net/http"

	"github.com/crop-up-dev/hub/internal/account"
	"github.com/crop-up-dev/hub/internal/market"
	"github.com/crop-up-dev/hub/internal/trading"
	"github.com/crop-up-dev/hub/pkg/binance"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) GetTicker(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.Ticker())
}

func (h *Handler) GetOrderBook(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.OrderBook())
}

func (h *Handler) GetCandles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbol":   h.market.Symbol(),
		"interval": h.market.Interval(),
		"candles":  h.market.Candles(),
	})
}

func (h *Handler) GetTrades(c *gin.Context) {
	c.JSON(http.StatusOK, h.market.Trades())
}

func (h *Handler) GetSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbols":  h.market.Symbols(),
		"selected": h.market.Symbol(),
	})
}

type selectionRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

func (h *Handler) PutSymbol(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Symbol == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}

	if err := h.market.SetSymbol(c.Request.Context(), req.Symbol); err != nil {
		h.selectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": h.market.Symbol()})
}

func (h *Handler) PutInterval(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Interval == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "interval is required"})
		return
	}

	if err := h.market.SetInterval(c.Request.Context(), req.Interval); err != nil {
		h.selectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interval": h.market.Interval()})
}

// selectionError maps a symbol/interval switch failure. A snapshot fetch
// failure is user-displayable but the streams are already live again, so it
// comes back as 502 with the message rather than a silent 200.
func (h *Handler) selectionError(c *gin.Context, err error) {
	var fetchErr *binance.FetchError
	switch {
	case errors.Is(err, market.ErrUnsupportedSymbol):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &fetchErr):
		c.JSON(http.StatusBadGateway, errorResponse{Error: "historical data unavailable"})
	default:
		h.logger.Error("selection change failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	p, err := h.portfolio.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("load portfolio failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio":        p,
		"averageEntry":     trading.AverageEntryPrice(p.Trades),
		"selectedSymbol":   h.market.Symbol(),
		"selectedInterval": h.market.Interval(),
	})
}

// GetPortfolioHistory serves just the balance-history curve, for chart
// widgets that don't need the full portfolio payload.
func (h *Handler) GetPortfolioHistory(c *gin.Context) {
	p, err := h.portfolio.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("load portfolio failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balanceHistory": p.BalanceHistory})
}

type orderRequest struct {
	Side   string  `json:"side" binding:"required,oneof=buy sell"`
	Type   string  `json:"type" binding:"required,oneof=market limit"`
	Price  float64 `json:"price" binding:"required,gt=0"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) PostOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	p, err := h.portfolio.Execute(c.Request.Context(), h.market.Symbol(),
		trading.Side(req.Side), trading.OrderType(req.Type), req.Price, req.Amount)
	if errors.Is(err, trading.ErrInsufficientBalance) {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "insufficient balance"})
		return
	}
	if err != nil {
		h.logger.Error("order execution failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"displayName" binding:"required"`
}

func (h *Handler) PostRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if errors.Is(err, account.ErrDuplicateRegistration) {
		c.JSON(http.StatusConflict, errorResponse{Error: "email already registered"})
		return
	}
	if err != nil {
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, sanitizeUser(user))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid email or password"})
		return
	case errors.Is(err, account.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, errorResponse{Error: "account is deactivated"})
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, sanitizeUser(user))
}

func (h *Handler) PostLogout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context()); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, err := h.accounts.CurrentUser(c.Request.Context())
	if errors.Is(err, account.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "not logged in"})
		return
	}
	if err != nil {
		h.logger.Error("current user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, sanitizeUser(user))
}

func (h *Handler) GetProfile(c *gin.Context) {
	p, err := h.profiles.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("load profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) PutProfile(c *gin.Context) {
	var p account.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.profiles.Save(c.Request.Context(), p); err != nil {
		h.logger.Error("save profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetUsers lists every registered account for the admin panel.
func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.accounts.AllUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	out := make([]account.AuthUser, len(users))
	for i, u := range users {
		out[i] = sanitizeUser(u)
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

func (h *Handler) PutUserRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	err := h.accounts.UpdateRole(c.Request.Context(), c.Param("id"), account.Role(req.Role))
	if err != nil {
		h.adminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PutUserActive(c *gin.Context) {
	if err := h.accounts.ToggleActive(c.Request.Context(), c.Param("id")); err != nil {
		h.adminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.accounts.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.adminError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminError(c *gin.Context, err error) {
	if errors.Is(err, account.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}
	h.logger.Error("admin operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sanitizeUser strips the stored password before a user record leaves the
// service.
func sanitizeUser(u account.AuthUser) account.AuthUser {
	u.Password = ""
	return u
}
