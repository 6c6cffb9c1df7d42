// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config loads and validates the node configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"gitlab.com/dyadchain/dyadd/corelog"
	"gitlab.com/dyadchain/dyadd/network/rpc"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

const (
	// DefaultConfigFilename is looked up in the data dir when no explicit
	// config path is given.
	DefaultConfigFilename = "dyadd.yaml"

	defaultDataDirname = "data"
	defaultLogLevel    = "info"
)

// MinerConfig holds the CPU miner settings.
type MinerConfig struct {
	// Enable starts the continuous CPU miner with the node.
	Enable bool `yaml:"enable"`

	// MiningAddr is the address generated blocks commit their subsidy to.
	MiningAddr string `yaml:"mining_addr"`

	// PowAlgo names the default algorithm of generated blocks.  Append
	// "-mm" to mine a fabricated merge-mining proof instead of a native
	// one.
	PowAlgo string `yaml:"pow_algo"`
}

// Config is the root of the node configuration file.
type Config struct {
	// Net selects the network to run on, "mainnet" or "regtest".
	Net string `yaml:"net"`

	// DataDir is the directory the block index database lives in.
	DataDir string `yaml:"data_dir"`

	// LogLevel is the minimum severity written to the log.
	LogLevel string `yaml:"log_level"`

	LogConfig corelog.Config `yaml:"log_config"`
	RPC       rpc.Config     `yaml:"rpc"`
	Miner     MinerConfig    `yaml:"miner"`
}

// Default returns the configuration the node runs with when the operator
// sets nothing.
func Default() *Config {
	return &Config{
		Net:       "mainnet",
		DataDir:   defaultDataDirname,
		LogLevel:  defaultLogLevel,
		LogConfig: corelog.Config{}.Default(),
		RPC:       rpc.Config{}.Default(),
		Miner: MinerConfig{
			PowAlgo: pow.AlgoScrypt.String(),
		},
	}
}

// Load reads the YAML config at path on top of the defaults.  A missing
// file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "cannot read config %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %s", path)
	}
	return cfg, nil
}

// NetParams resolves the configured network name.
func (cfg *Config) NetParams() (*chaincfg.Params, error) {
	switch cfg.Net {
	case "", chaincfg.MainNetParams.Name:
		return &chaincfg.MainNetParams, nil
	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil
	}
	return nil, errors.Errorf("unknown network %q", cfg.Net)
}

// ParseLogLevel resolves the configured log level name.
func (cfg *Config) ParseLogLevel() (zerolog.Level, error) {
	if cfg.LogLevel == "" {
		return corelog.DefaultLevel, nil
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return 0, errors.Wrapf(err, "unknown log level %q", cfg.LogLevel)
	}
	return level, nil
}

// DBPath returns the block index database directory for the configured
// network.
func (cfg *Config) DBPath(params *chaincfg.Params) string {
	return filepath.Join(cfg.DataDir, params.Name, "blocks_badger")
}
