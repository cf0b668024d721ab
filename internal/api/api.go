// Package api is the HTTP boundary the presentation layer talks to:
// read-only market-data accessors, symbol/interval selection, paper-trade
// execution and the demo account endpoints.
package api

import (
	"context"

	"github.com/crop-up-dev/hub/internal/account"
	"github.com/crop-up-dev/hub/internal/market/view"
	"github.com/crop-up-dev/hub/internal/trading"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// MarketService is the slice of the market service the handlers need.
type MarketService interface {
	Symbol() string
	Interval() string
	Symbols() []string
	Ticker() view.TickerSnapshot
	OrderBook() view.OrderBook
	Candles() []view.Candle
	Trades() []view.RecentTrade
	SetSymbol(ctx context.Context, symbol string) error
	SetInterval(ctx context.Context, interval string) error
}

// Handler serves the HTTP API.
type Handler struct {
	market    MarketService
	portfolio *trading.Repository
	accounts  *account.Service
	profiles  *account.ProfileRepository
	logger    *zap.Logger
}

func NewHandler(market MarketService, portfolio *trading.Repository,
	accounts *account.Service, profiles *account.ProfileRepository, logger *zap.Logger) *Handler {
	return &Handler{
		market:    market,
		portfolio: portfolio,
		accounts:  accounts,
		profiles:  profiles,
		logger:    logger,
	}
}

// Router configures all API routes.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(zapLoggerMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	m := router.Group("/market")
	{
		m.GET("/ticker", h.GetTicker)
		m.GET("/orderbook", h.GetOrderBook)
		m.GET("/candles", h.GetCandles)
		m.GET("/trades", h.GetTrades)
		m.GET("/symbols", h.GetSymbols)
		m.PUT("/symbol", h.PutSymbol)
		m.PUT("/interval", h.PutInterval)
	}

	router.GET("/portfolio", h.GetPortfolio)
	router.GET("/portfolio/history", h.GetPortfolioHistory)
	router.POST("/orders", h.PostOrder)

	a := router.Group("/account")
	{
		a.POST("/register", h.PostRegister)
		a.POST("/login", h.PostLogin)
		a.POST("/logout", h.PostLogout)
		a.GET("/me", h.GetCurrentUser)
		a.GET("/profile", h.GetProfile)
		a.PUT("/profile", h.PutProfile)

		a.GET("/users", h.GetUsers)
		a.PUT("/users/:id/role", h.PutUserRole)
		a.PUT("/users/:id/active", h.PutUserActive)
		a.DELETE("/users/:id", h.DeleteUser)
	}

	router.GET("/health", h.HealthCheck)

	return router
}
