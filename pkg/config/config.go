// Package config loads the TOML configuration naming the networks to
// serve and their gas price cache windows.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/zeebo/errs"

	"github.com/evmrelay/gas-price-cache/pkg/gascache"
)

type MissingFieldsError = toml.StrictMissingError

const (
	// DefaultStaleAfter and DefaultExpireAfter are the cache windows
	// applied when a network's gas_price_cache block leaves them unset.
	DefaultStaleAfter  = Duration(20 * time.Second)
	DefaultExpireAfter = Duration(45 * time.Second)
)

type Config struct {
	Networks []Network `toml:"network"`
}

type Network struct {
	// Name labels the network in output and logs.
	Name string `toml:"name"`

	// ChainID identifies the network. Must be unique across the config.
	ChainID uint64 `toml:"chain_id"`

	// NodeURL is the JSON-RPC endpoint serving the network.
	NodeURL string `toml:"node_url"`

	// GasPriceCache holds the cache windows. A network without the
	// block (or with enabled = false) bypasses the cache entirely.
	GasPriceCache *GasPriceCache `toml:"gas_price_cache"`
}

type GasPriceCache struct {
	// Enabled turns caching on for the network.
	Enabled bool `toml:"enabled"`

	// StaleAfter is the snapshot age at which reads still serve the
	// cached value but trigger a background refresh.
	StaleAfter Duration `toml:"stale_after"`

	// ExpireAfter is the snapshot age at which reads must wait for a
	// fresh upstream fetch. Must be greater than StaleAfter.
	ExpireAfter Duration `toml:"expire_after"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var config Config

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Fill in cache window defaults before validating.
	for i := range config.Networks {
		cache := config.Networks[i].GasPriceCache
		if cache == nil {
			continue
		}
		if cache.StaleAfter == 0 {
			cache.StaleAfter = DefaultStaleAfter
		}
		if cache.ExpireAfter == 0 {
			cache.ExpireAfter = DefaultExpireAfter
		}
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	if len(c.Networks) == 0 {
		return errs.New("at least one network is required")
	}

	seen := make(map[uint64]string, len(c.Networks))
	for _, network := range c.Networks {
		switch {
		case network.Name == "":
			return errs.New("network name is required")
		case network.ChainID == 0:
			return errs.New("network %q: chain_id is required", network.Name)
		case network.NodeURL == "":
			return errs.New("network %q: node_url is required", network.Name)
		}

		if other, ok := seen[network.ChainID]; ok {
			return errs.New("network %q: chain_id %d already used by %q", network.Name, network.ChainID, other)
		}
		seen[network.ChainID] = network.Name

		// Bad cache windows are a fatal configuration error; they must
		// never reach the cache core.
		if network.GasPriceCache != nil && network.GasPriceCache.Enabled {
			if err := network.CacheConfig().Validate(); err != nil {
				return errs.New("network %q: %v", network.Name, err)
			}
		}
	}
	return nil
}

// CacheConfig maps the network's cache block onto the cache core's
// config. Networks without a block are disabled.
func (n Network) CacheConfig() gascache.NetworkConfig {
	if n.GasPriceCache == nil {
		return gascache.NetworkConfig{}
	}
	return gascache.NetworkConfig{
		Enabled:     n.GasPriceCache.Enabled,
		StaleAfter:  n.GasPriceCache.StaleAfter.Std(),
		ExpireAfter: n.GasPriceCache.ExpireAfter.Std(),
	}
}

// CacheConfigs collects the per-chain cache configs for the cache core.
func (c Config) CacheConfigs() map[uint64]gascache.NetworkConfig {
	networks := make(map[uint64]gascache.NetworkConfig, len(c.Networks))
	for _, network := range c.Networks {
		networks[network.ChainID] = network.CacheConfig()
	}
	return networks
}

func DumpUnknownFields(err error) string {
	var sme *toml.StrictMissingError
	if errors.As(err, &sme) {
		return sme.String()
	}
	return ""
}
