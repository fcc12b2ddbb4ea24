package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	NetworkName    string `toml:"NetworkName"`
	AdminAddress   string `toml:"AdminAddress"`
	BaseToken      string `toml:"BaseToken"`

	SwapFeeBps       uint64 `toml:"SwapFeeBps"`
	StakeRateBps     uint64 `toml:"StakeRateBps"`
	StakeMaxRateBps  uint64 `toml:"StakeMaxRateBps"`
	FarmRewardPerSec uint64 `toml:"FarmRewardPerSec"`

	LoanMinDurationSecs uint64 `toml:"LoanMinDurationSecs"`
	LoanMaxDurationSecs uint64 `toml:"LoanMaxDurationSecs"`
	LoanMaxRateBps      uint64 `toml:"LoanMaxRateBps"`
	LoanRequestTTLSecs  uint64 `toml:"LoanRequestTTLSecs"`

	MerchantMaxCashbackBps uint64 `toml:"MerchantMaxCashbackBps"`
}

const basisPoints = 10_000

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "pesa-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9090"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./pesa-data"
	}
	if strings.TrimSpace(cfg.BaseToken) == "" {
		cfg.BaseToken = "PESA"
	}
	if cfg.StakeMaxRateBps == 0 {
		cfg.StakeMaxRateBps = 5_000
	}
	if cfg.LoanMinDurationSecs == 0 {
		cfg.LoanMinDurationSecs = 86_400
	}
	if cfg.LoanMaxDurationSecs == 0 {
		cfg.LoanMaxDurationSecs = 365 * 86_400
	}
	if cfg.LoanMaxRateBps == 0 {
		cfg.LoanMaxRateBps = 3_000
	}
	if cfg.LoanRequestTTLSecs == 0 {
		cfg.LoanRequestTTLSecs = 7 * 86_400
	}
	if cfg.MerchantMaxCashbackBps == 0 {
		cfg.MerchantMaxCashbackBps = 1_000
	}
}

// Validate rejects rate parameters that fall outside the basis-point domain.
func (cfg *Config) Validate() error {
	if cfg.SwapFeeBps >= basisPoints {
		return fmt.Errorf("config: SwapFeeBps %d must be below %d", cfg.SwapFeeBps, basisPoints)
	}
	if cfg.StakeRateBps > cfg.StakeMaxRateBps {
		return fmt.Errorf("config: StakeRateBps %d exceeds ceiling %d", cfg.StakeRateBps, cfg.StakeMaxRateBps)
	}
	if cfg.LoanMinDurationSecs > cfg.LoanMaxDurationSecs {
		return fmt.Errorf("config: LoanMinDurationSecs %d exceeds LoanMaxDurationSecs %d", cfg.LoanMinDurationSecs, cfg.LoanMaxDurationSecs)
	}
	if cfg.AdminAddress != "" {
		if _, err := cfg.Admin(); err != nil {
			return err
		}
	}
	return nil
}

// Admin decodes the configured admin address. A missing address yields the
// zero address, which matches no caller.
func (cfg *Config) Admin() ([20]byte, error) {
	var admin [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(cfg.AdminAddress), "0x")
	if trimmed == "" {
		return admin, nil
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return admin, fmt.Errorf("config: invalid AdminAddress: %w", err)
	}
	if len(raw) != len(admin) {
		return admin, fmt.Errorf("config: AdminAddress must be %d bytes, got %d", len(admin), len(raw))
	}
	copy(admin[:], raw)
	return admin, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:       ":8080",
		MetricsAddress:   ":9090",
		DataDir:          "./pesa-data",
		NetworkName:      "pesa-local",
		BaseToken:        "PESA",
		SwapFeeBps:       30,
		StakeRateBps:     1_000,
		FarmRewardPerSec: 1,
	}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
