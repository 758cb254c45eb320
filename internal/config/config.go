// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/poolctl/internal/asset"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Network   NetworkConfig   `mapstructure:"network"`
	Swap      SwapConfig      `mapstructure:"swap"`
	Withdraw  WithdrawConfig  `mapstructure:"withdraw"`
	Market    MarketConfig    `mapstructure:"market"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// NetworkConfig holds node and pool contract settings.
type NetworkConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"` // optional, head subscriber polls over HTTP without it
	ChainID        uint64        `mapstructure:"chain_id"`
	PoolAddress    string        `mapstructure:"pool_address"`
	TokenA         string        `mapstructure:"token_a"` // pool token addresses, as passed to the pool's initialize
	TokenB         string        `mapstructure:"token_b"`
	AccountKeyEnv  string        `mapstructure:"account_key_env"` // name of the env var holding the hex private key
	GasLimit       uint64        `mapstructure:"gas_limit"`
	MaxFeeGwei     float64       `mapstructure:"max_fee_gwei"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
}

// PoolAddressHex returns the pool address as common.Address.
func (c *NetworkConfig) PoolAddressHex() common.Address {
	return common.HexToAddress(c.PoolAddress)
}

// TokenAddresses returns the pool's token A and token B addresses.
func (c *NetworkConfig) TokenAddresses() (common.Address, common.Address) {
	return common.HexToAddress(c.TokenA), common.HexToAddress(c.TokenB)
}

// AccountKey returns the signing key read from the configured env var.
// Empty when unset; read-only commands work without it.
func (c *NetworkConfig) AccountKey() string {
	if c.AccountKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.AccountKeyEnv)
}

// MaxFeeGweiDecimal returns the fee cap as decimal.Decimal. Zero means no cap.
func (c *NetworkConfig) MaxFeeGweiDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxFeeGwei)
}

// SwapConfig holds swap defaults.
type SwapConfig struct {
	DefaultSlippage string `mapstructure:"default_slippage"`
}

// DefaultSlippageDecimal returns the default swap tolerance in percent.
func (c *SwapConfig) DefaultSlippageDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultSlippage)
}

// WithdrawConfig holds withdraw defaults.
type WithdrawConfig struct {
	DefaultSlippage     string `mapstructure:"default_slippage"`
	DefaultSharePercent string `mapstructure:"default_share_percent"`
}

// DefaultSlippageDecimal returns the default withdraw tolerance in percent.
func (c *WithdrawConfig) DefaultSlippageDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultSlippage)
}

// DefaultSharePercentDecimal returns the default share percentage.
func (c *WithdrawConfig) DefaultSharePercentDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultSharePercent)
}

// MarketConfig holds the reference price guard settings.
type MarketConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	Symbol            string        `mapstructure:"symbol"`   // ticker quoting token A in token B, e.g. XLMUSDC
	Inverted          bool          `mapstructure:"inverted"` // ticker quotes token B in token A
	MaxDeviationBps   float64       `mapstructure:"max_deviation_bps"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// MaxDeviationBpsDecimal returns the deviation threshold as decimal.Decimal.
func (c *MarketConfig) MaxDeviationBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxDeviationBps)
}

// JournalConfig holds the submission journal settings.
type JournalConfig struct {
	DSN      string `mapstructure:"dsn"` // empty disables the journal
	MaxConns int32  `mapstructure:"max_conns"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // otlp-grpc, otlp-http, zipkin, console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("POOL")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "POOL_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "POOL_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "POOL_LOG_LEVEL", "LOG_LEVEL")

	// Network
	v.BindEnv("network.http_url", "POOL_RPC_HTTP_URL", "RPC_HTTP_URL")
	v.BindEnv("network.websocket_url", "POOL_RPC_WS_URL", "RPC_WS_URL")
	v.BindEnv("network.chain_id", "POOL_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("network.pool_address", "POOL_ADDRESS")
	v.BindEnv("network.token_a", "POOL_TOKEN_A")
	v.BindEnv("network.token_b", "POOL_TOKEN_B")
	v.BindEnv("network.account_key_env", "POOL_ACCOUNT_KEY_ENV")

	// Defaults for requests
	v.BindEnv("swap.default_slippage", "POOL_SWAP_SLIPPAGE")
	v.BindEnv("withdraw.default_slippage", "POOL_WITHDRAW_SLIPPAGE")

	// Market
	v.BindEnv("market.enabled", "POOL_MARKET_ENABLED")
	v.BindEnv("market.base_url", "POOL_MARKET_URL")
	v.BindEnv("market.symbol", "POOL_MARKET_SYMBOL")
	v.BindEnv("market.max_deviation_bps", "POOL_MARKET_MAX_DEVIATION_BPS")

	// Journal
	v.BindEnv("journal.dsn", "POOL_JOURNAL_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "POOL_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "POOL_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "POOL_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "poolctl")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("network.chain_id", 1)
	v.SetDefault("network.account_key_env", "POOL_ACCOUNT_KEY")
	v.SetDefault("network.gas_limit", 300000)
	v.SetDefault("network.max_fee_gwei", 0)
	v.SetDefault("network.receipt_timeout", "2m")
	v.SetDefault("network.poll_interval", "4s")
	v.SetDefault("network.call_timeout", "10s")

	v.SetDefault("swap.default_slippage", "0.5")
	v.SetDefault("withdraw.default_slippage", "0.5")
	v.SetDefault("withdraw.default_share_percent", "100")

	v.SetDefault("market.enabled", false)
	v.SetDefault("market.base_url", "https://api.binance.com")
	v.SetDefault("market.symbol", "XLMUSDC")
	v.SetDefault("market.max_deviation_bps", 300)
	v.SetDefault("market.requests_per_second", 5)
	v.SetDefault("market.timeout", "5s")

	v.SetDefault("journal.max_conns", 4)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "poolctl")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Network.HTTPURL == "" {
		return fmt.Errorf("network.http_url is required")
	}
	if !common.IsHexAddress(c.Network.PoolAddress) {
		return fmt.Errorf("invalid network.pool_address: %q", c.Network.PoolAddress)
	}
	if c.Network.PoolAddressHex() == (common.Address{}) {
		return fmt.Errorf("network.pool_address cannot be the zero address")
	}
	for key, addr := range map[string]string{"network.token_a": c.Network.TokenA, "network.token_b": c.Network.TokenB} {
		if !common.IsHexAddress(addr) || common.HexToAddress(addr) == (common.Address{}) {
			return fmt.Errorf("invalid %s: %q", key, addr)
		}
	}
	if a, b := c.Network.TokenAddresses(); a == b {
		return fmt.Errorf("network.token_a and network.token_b must differ")
	}
	if err := validateSlippage("swap.default_slippage", c.Swap.DefaultSlippage); err != nil {
		return err
	}
	if err := validateSlippage("withdraw.default_slippage", c.Withdraw.DefaultSlippage); err != nil {
		return err
	}
	pct, err := asset.ParseDecimal(c.Withdraw.DefaultSharePercent)
	if err != nil || !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("withdraw.default_share_percent must be in (0, 100]: %q", c.Withdraw.DefaultSharePercent)
	}
	if c.Market.Enabled {
		if c.Market.Symbol == "" {
			return fmt.Errorf("market.symbol is required when the market guard is enabled")
		}
		if c.Market.MaxDeviationBps <= 0 {
			return fmt.Errorf("market.max_deviation_bps must be positive")
		}
	}
	return nil
}

func validateSlippage(key, value string) error {
	d, err := asset.ParseDecimal(value)
	if err != nil {
		return fmt.Errorf("%s is not a usable number: %q", key, value)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be in [0, 100): %s", key, value)
	}
	return nil
}
