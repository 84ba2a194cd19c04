package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stellar/go/keypair"
	"github.com/yourusername/invoice-factoring/config"
	"github.com/yourusername/invoice-factoring/factoring"
	"github.com/yourusername/invoice-factoring/handlers"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/middleware"
	"github.com/yourusername/invoice-factoring/models"
	"github.com/yourusername/invoice-factoring/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, host *ledger.Host, cfg *config.Config, stellarClient utils.StellarClientInterface, log *zap.Logger) (*gin.Engine, error) {
	operator, err := keypair.ParseFull(cfg.OperatorSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid operator secret: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "invoice-factoring-api",
		})
	})

	authHandler := handlers.NewAuthHandler(db, cfg, log)
	contractHandler := handlers.NewContractHandler(host, log)
	escrowHandler := handlers.NewEscrowHandler(host, handlers.NewPayoutService(db, cfg, stellarClient, log))
	tokenHandler := handlers.NewTokenHandler(host)
	marketHandler := handlers.NewMarketplaceHandler(host)
	factoringHandler := handlers.NewFactoringHandler(factoring.NewService(host, log), operator)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/challenge", authHandler.Challenge)
		auth.POST("/token", authHandler.Token)
		auth.POST("/refresh", authHandler.Refresh)

		secured := api.Group("")
		secured.Use(middleware.JwtAuthMiddleware(cfg))
		admin := middleware.RequireRole(models.RoleAdmin)

		contracts := secured.Group("/contracts")
		contracts.POST("", admin, contractHandler.Deploy)
		contracts.GET("/:id/events", contractHandler.Events)

		escrows := secured.Group("/escrows")
		escrows.GET("/:id", escrowHandler.Get)
		escrows.GET("/:id/deposits/:investor", escrowHandler.GetDeposit)
		escrows.GET("/:id/payout", escrowHandler.GetPayout)
		escrows.POST("/:id/initialize", admin, escrowHandler.Initialize)
		escrows.POST("/:id/deposit", escrowHandler.Deposit)
		escrows.POST("/:id/release", escrowHandler.Release)
		escrows.POST("/:id/default", admin, escrowHandler.Default)
		escrows.POST("/:id/payout", admin, escrowHandler.Payout)

		tokens := secured.Group("/tokens")
		tokens.GET("/:id", tokenHandler.Get)
		tokens.GET("/:id/balances/:owner", tokenHandler.Balance)
		tokens.POST("/:id/initialize", admin, tokenHandler.Initialize)
		tokens.POST("/:id/transfer", tokenHandler.Transfer)
		tokens.POST("/:id/mint", admin, tokenHandler.Mint)
		tokens.POST("/:id/burn", tokenHandler.Burn)

		markets := secured.Group("/marketplaces")
		markets.POST("/:id/initialize", admin, marketHandler.Initialize)
		markets.GET("/:id/listings", marketHandler.ActiveListings)
		markets.POST("/:id/listings", admin, marketHandler.ListToken)
		markets.GET("/:id/listings/:listing", marketHandler.GetListing)
		markets.POST("/:id/listings/:listing/purchase", marketHandler.Purchase)
		markets.DELETE("/:id/listings/:listing", admin, marketHandler.RemoveListing)

		factor := secured.Group("/factoring")
		factor.POST("/tokenize", admin, factoringHandler.Tokenize)
		factor.POST("/invest", factoringHandler.Invest)
	}

	return r, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
