// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Network    NetworkConfig    `mapstructure:"network"`
	Deployer   DeployerConfig   `mapstructure:"deployer"`
	Contract   ContractConfig   `mapstructure:"contract"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// NetworkConfig describes the target chain. Zero values are filled from the
// network preset.
type NetworkConfig struct {
	Name              string            `mapstructure:"name"`
	RPCURL            string            `mapstructure:"rpc_url"`
	RPCHeaders        map[string]string `mapstructure:"rpc_headers"`
	ChainID           uint64            `mapstructure:"chain_id"`
	GasPriceGwei      float64           `mapstructure:"gas_price_gwei"`
	MaxGasPriceGwei   float64           `mapstructure:"max_gas_price_gwei"`
	GasLimit          uint64            `mapstructure:"gas_limit"`
	RequestTimeout    time.Duration     `mapstructure:"request_timeout"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"` // zero disables the JSON-RPC limit
}

// GasPriceDecimal returns the fixed gas price in gwei, zero meaning "ask the node".
func (c *NetworkConfig) GasPriceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.GasPriceGwei)
}

// MaxGasPriceDecimal returns the gas price cap in gwei, zero meaning uncapped.
func (c *NetworkConfig) MaxGasPriceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxGasPriceGwei)
}

// DeployerConfig holds the signing account.
type DeployerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// ContractConfig identifies the contract and its constructor input.
type ContractConfig struct {
	Name                string `mapstructure:"name"`
	ArtifactsDir        string `mapstructure:"artifacts_dir"`
	ArtifactPath        string `mapstructure:"artifact_path"`
	PoolAddressProvider string `mapstructure:"pool_address_provider"`
	OwnerMethod         string `mapstructure:"owner_method"`
	PoolMethod          string `mapstructure:"pool_method"`
}

// PoolAddressProviderHex returns the constructor argument as common.Address.
func (c *ContractConfig) PoolAddressProviderHex() common.Address {
	return common.HexToAddress(c.PoolAddressProvider)
}

// DeploymentConfig controls confirmation and record output.
type DeploymentConfig struct {
	OutputPath          string        `mapstructure:"output_path"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	Confirmations       uint64        `mapstructure:"confirmations"`
	TUIMode             bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	Insecure       bool   `mapstructure:"insecure"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Overrides are command-line values that win over file and env.
type Overrides struct {
	Network    string
	OutputPath string
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	return LoadWithOverrides(configPath, Overrides{})
}

// LoadWithOverrides loads configuration and applies CLI overrides before the
// network preset is resolved.
func LoadWithOverrides(configPath string, o Overrides) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("deployer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("DEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	if o.Network != "" {
		v.Set("network.name", o.Network)
	}
	if o.OutputPath != "" {
		v.Set("deployment.output_path", o.OutputPath)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyPreset()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DEPLOY_APP_NAME")
	v.BindEnv("app.environment", "DEPLOY_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEPLOY_LOG_LEVEL", "LOG_LEVEL")

	// Network
	v.BindEnv("network.name", "DEPLOY_NETWORK", "NETWORK")
	v.BindEnv("network.rpc_url", "DEPLOY_RPC_URL")
	v.BindEnv("network.chain_id", "DEPLOY_CHAIN_ID")
	v.BindEnv("network.gas_price_gwei", "DEPLOY_GAS_PRICE_GWEI")
	v.BindEnv("network.max_gas_price_gwei", "DEPLOY_MAX_GAS_PRICE_GWEI")
	v.BindEnv("network.gas_limit", "DEPLOY_GAS_LIMIT")
	v.BindEnv("network.requests_per_minute", "DEPLOY_RPC_REQUESTS_PER_MINUTE")

	// Deployer
	v.BindEnv("deployer.private_key", "DEPLOY_PRIVATE_KEY", "PRIVATE_KEY")

	// Contract
	v.BindEnv("contract.name", "DEPLOY_CONTRACT")
	v.BindEnv("contract.pool_address_provider", "DEPLOY_POOL_ADDRESS_PROVIDER", "AAVE_POOL_ADDRESSES_PROVIDER")

	// Deployment
	v.BindEnv("deployment.output_path", "DEPLOY_OUTPUT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DEPLOY_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DEPLOY_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_provider", "DEPLOY_OTEL_TRACE_PROVIDER", "OTEL_TRACES_EXPORTER")
	v.BindEnv("telemetry.otlp_endpoint", "DEPLOY_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "DEPLOY_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashloan-deployer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Network defaults; the rest comes from the preset
	v.SetDefault("network.name", "sepolia")
	v.SetDefault("network.request_timeout", "30s")
	v.SetDefault("network.requests_per_minute", 0)

	// Contract defaults
	v.SetDefault("contract.name", "FlashLoanArbitrage")
	v.SetDefault("contract.artifacts_dir", "artifacts")
	v.SetDefault("contract.owner_method", "owner")
	v.SetDefault("contract.pool_method", "POOL")

	// Deployment defaults
	v.SetDefault("deployment.output_path", "config/deployment.json")
	v.SetDefault("deployment.confirmation_timeout", "5m")
	v.SetDefault("deployment.poll_interval", "2s")
	v.SetDefault("deployment.confirmations", 1)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashloan-deployer")
	v.SetDefault("telemetry.trace_provider", "empty")
	v.SetDefault("telemetry.prometheus_port", 0)
}

// applyPreset fills unset network and contract values from the named preset.
// Unknown network names keep whatever was configured explicitly.
func (c *Config) applyPreset() {
	c.Network.Name = strings.ToLower(strings.TrimSpace(c.Network.Name))

	p, ok := LookupPreset(c.Network.Name)
	if !ok {
		return
	}
	if c.Network.RPCURL == "" {
		c.Network.RPCURL = p.RPCURL()
	}
	if c.Network.ChainID == 0 {
		c.Network.ChainID = p.ChainID
	}
	if c.Network.GasPriceGwei == 0 {
		c.Network.GasPriceGwei = p.GasPriceGwei
	}
	if c.Network.GasLimit == 0 {
		c.Network.GasLimit = p.GasLimit
	}
	if c.Contract.PoolAddressProvider == "" {
		c.Contract.PoolAddressProvider = p.PoolProvider
	}
}

// Validate validates the configuration. A missing private key is not a
// configuration error; the deployment reports it as "no signer".
func (c *Config) Validate() error {
	if c.Network.Name == "" {
		return fmt.Errorf("network.name is required")
	}
	if c.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url is required for network %q (known networks: %s)",
			c.Network.Name, strings.Join(PresetNames(), ", "))
	}
	if c.Network.GasPriceGwei < 0 || c.Network.MaxGasPriceGwei < 0 {
		return fmt.Errorf("gas prices cannot be negative")
	}
	if c.Contract.Name == "" {
		return fmt.Errorf("contract.name is required")
	}
	if !common.IsHexAddress(c.Contract.PoolAddressProvider) {
		return fmt.Errorf("invalid contract.pool_address_provider: %q", c.Contract.PoolAddressProvider)
	}
	if c.Contract.OwnerMethod == "" || c.Contract.PoolMethod == "" {
		return fmt.Errorf("contract.owner_method and contract.pool_method are required")
	}
	if c.Deployment.OutputPath == "" {
		return fmt.Errorf("deployment.output_path is required")
	}
	if c.Deployment.ConfirmationTimeout <= 0 {
		return fmt.Errorf("deployment.confirmation_timeout must be positive")
	}
	if c.Deployment.PollInterval <= 0 {
		return fmt.Errorf("deployment.poll_interval must be positive")
	}
	if c.Deployment.Confirmations < 1 {
		return fmt.Errorf("deployment.confirmations must be at least 1")
	}
	return nil
}
