package main

import (
	"log"

	"github.com/yourusername/invoice-factoring/config"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/logger"
	"github.com/yourusername/invoice-factoring/router"
	"github.com/yourusername/invoice-factoring/utils"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	host := ledger.NewHost(ledger.NewSQLStore(db), ledger.WithLogger(zlog.Named("ledger")))
	stellarClient := utils.NewStellarClient(cfg.HorizonURL, cfg.NetworkPassphrase)

	r, err := router.Setup(db, host, cfg, stellarClient, zlog)
	if err != nil {
		zlog.Fatal("Failed to set up routes", zap.Error(err))
	}

	zlog.Info("Starting invoice factoring API server",
		zap.String("port", cfg.Port),
		zap.String("network", cfg.StellarNetwork),
		zap.String("database", cfg.DatabaseDriver))
	if err := r.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}
}
