package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yourusername/invoice-factoring/ledger"
	"github.com/yourusername/invoice-factoring/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	DatabaseDriver    string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL       string `env:"DATABASE_URL"`
	StellarNetwork    string `env:"STELLAR_NETWORK" envDefault:"testnet"`
	HorizonURL        string `env:"HORIZON_URL" envDefault:"https://horizon-testnet.stellar.org"`
	NetworkPassphrase string `env:"NETWORK_PASSPHRASE" envDefault:"Test SDF Network ; September 2015"`
	JWTSecret         string `env:"JWT_SECRET"`
	JWTRefreshSecret  string `env:"JWT_REFRESH_SECRET"`
	OperatorSecret    string `env:"OPERATOR_SECRET"`
	PayoutAssetCode   string `env:"PAYOUT_ASSET_CODE" envDefault:"USDC"`
	PayoutAssetIssuer string `env:"PAYOUT_ASSET_ISSUER"`
	PayoutSubmit      bool   `env:"PAYOUT_SUBMIT" envDefault:"false"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile           string `env:"LOG_FILE"`
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the API cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.OperatorSecret == "" {
		return fmt.Errorf("OPERATOR_SECRET is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PayoutAssetIssuer != "" {
		if _, err := ledger.ParseAddress(c.PayoutAssetIssuer); err != nil {
			return fmt.Errorf("PAYOUT_ASSET_ISSUER: %w", err)
		}
	}
	return nil
}

// NativePayouts reports whether payouts are made in lumens rather than an
// issued asset.
func (c *Config) NativePayouts() bool {
	return strings.EqualFold(c.PayoutAssetCode, "XLM") || c.PayoutAssetIssuer == ""
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.DatabaseDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the account, payout and ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Account{}, &models.Payout{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := ledger.NewSQLStore(db).Migrate(); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return nil
}
