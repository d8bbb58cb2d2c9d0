package handler

import (
	"coursepay/config"
	"coursepay/internal/adapter/http/middleware"
	"coursepay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	CheckoutSvc    ports.CheckoutService
	CouponSvc      ports.CouponService
	SettlementSvc  ports.SettlementService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	Gateways       map[string]config.GatewayConfig
	WalletExponent int32
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if a limiter is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- JWT-authenticated routes (user API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.CheckoutSvc, deps.ReportingSvc, deps.WalletExponent)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc, deps.CouponSvc)
	callbackHandler := NewCallbackHandler(deps.SettlementSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/balance", rl("wallet_read"), walletHandler.GetBalance)
		wallets.GET("/transactions", rl("wallet_read"), walletHandler.ListTransactions)
		wallets.GET("/stats", rl("wallet_read"), walletHandler.GetStats)
		wallets.POST("/transfer", rl("wallet_transfer"), walletHandler.Transfer)
		wallets.POST("/withdraw", rl("wallet_withdraw"), walletHandler.Withdraw)
	}

	v1.POST("/checkout", jwtAuth, rl("checkout"), checkoutHandler.Checkout)
	v1.POST("/coupons/preview", jwtAuth, rl("coupon_preview"), checkoutHandler.CouponPreview)

	settlements := v1.Group("/settlements", jwtAuth)
	{
		settlements.GET("/reviews", rl("wallet_read"), callbackHandler.ListReviews)
	}

	// --- HMAC-authenticated routes (gateway callbacks) ---
	hmacAuth := middleware.GatewayHMACAuth(deps.Gateways, deps.SigSvc, deps.NonceStore, deps.Logger)
	v1.POST("/gateway/callback", hmacAuth, rl("gateway_callback"), callbackHandler.GatewayCallback)

	return r
}
