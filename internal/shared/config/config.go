package config

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the process configuration, read from the environment (and an optional .env file).
type Config struct {
	HTTP struct {
		Addr string `env:"HTTP_ADDR" envDefault:":9000"`
	}
	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}
	DB struct {
		Enabled        bool   `env:"PERSISTENCE_ENABLED" envDefault:"false"`
		Host           string `env:"DB_HOST" envDefault:"localhost"`
		Port           string `env:"DB_PORT" envDefault:"5432"`
		User           string `env:"DB_USER" envDefault:"postgres"`
		Password       string `env:"DB_PASSWORD"`
		Name           string `env:"DB_NAME" envDefault:"auctions"`
		SSLMode        string `env:"DB_SSLMODE" envDefault:"disable"`
		MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://internal/shared/db/migrations/sql"`
	}
	Auction struct {
		// MinIncrementUSD is a plain USD amount ("10" means $10), scaled to the common unit at wiring time.
		MinIncrementUSD decimal.Decimal `env:"MIN_INCREMENT_USD" envDefault:"10"`
		NativePriceUSD  decimal.Decimal `env:"NATIVE_PRICE_USD" envDefault:"3000"`
		NativeDecimals  int32           `env:"NATIVE_DECIMALS" envDefault:"18"`
	}
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
		return decimal.NewFromString(v)
	},
}

// Load reads .env when present and parses the environment into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.ParseWithFuncs(&c, parsers); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if c.Auction.MinIncrementUSD.IsNegative() {
		return Config{}, fmt.Errorf("config: MIN_INCREMENT_USD must not be negative, got %s", c.Auction.MinIncrementUSD)
	}
	if !c.Auction.NativePriceUSD.IsPositive() {
		return Config{}, fmt.Errorf("config: NATIVE_PRICE_USD must be positive, got %s", c.Auction.NativePriceUSD)
	}
	if c.Auction.NativeDecimals < 0 || c.Auction.NativeDecimals > 36 {
		return Config{}, fmt.Errorf("config: NATIVE_DECIMALS out of range: %d", c.Auction.NativeDecimals)
	}
	return c, nil
}

// PostgresDSN builds the pgx / golang-migrate connection string.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode,
	)
}
