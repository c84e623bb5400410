// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// RPC defines Solana network endpoints and the commitment level used for reads.
type RPC struct {
	URL        string `yaml:"url"`
	WsURL      string `yaml:"ws_url"`
	Commitment string `yaml:"commitment"` // processed|confirmed|finalized
}

// Rarefish holds program-level addresses. FeeOwner falls back to the
// SWAP_PROGRAM_OWNER_FEE_ADDRESS environment variable when empty.
type Rarefish struct {
	ProgramID string `yaml:"program_id"`
	FeeOwner  string `yaml:"fee_owner"`
}

// Market describes one pool the quote tooling operates on.
type Market struct {
	Name          string `yaml:"name"`
	Address       string `yaml:"address"`
	SellSide      string `yaml:"sell_side"` // "a" or "b": which pool mint the fixture sells
	SellAmount    uint64 `yaml:"sell_amount"`
	TokenADecimal uint8  `yaml:"token_a_decimals"`
	TokenBDecimal uint8  `yaml:"token_b_decimals"`
}

// Swap tunes swap assembly for the simulation tooling.
type Swap struct {
	Market      string `yaml:"market"` // name of the market entry to swap on
	AmountIn    uint64 `yaml:"amount_in"`
	SlippageBps uint64 `yaml:"slippage_bps"`
	KeypairPath string `yaml:"keypair_path"`
	Execute     bool   `yaml:"execute"` // send on-chain after a clean simulation
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	RPC      RPC      `yaml:"rpc"`
	Rarefish Rarefish `yaml:"rarefish"`
	Markets  []Market `yaml:"markets"`
	Swap     Swap     `yaml:"swap"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &config, nil
}

func (c *Config) validate() error {
	for _, market := range c.Markets {
		if market.SellSide != "a" && market.SellSide != "b" {
			return fmt.Errorf("market %q: sell_side must be \"a\" or \"b\", got %q", market.Name, market.SellSide)
		}
		if market.SellAmount == 0 {
			return fmt.Errorf("market %q: sell_amount must be positive", market.Name)
		}
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// MarketByName finds a configured market entry, or nil when absent.
func (c *Config) MarketByName(name string) *Market {
	for i := range c.Markets {
		if c.Markets[i].Name == name {
			return &c.Markets[i]
		}
	}
	return nil
}
