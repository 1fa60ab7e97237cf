package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mitchellh/go-homedir"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/evmrelay/gas-price-cache/pkg/config"
	"github.com/evmrelay/gas-price-cache/pkg/eth"
	"github.com/evmrelay/gas-price-cache/pkg/fancy"
	"github.com/evmrelay/gas-price-cache/pkg/gascache"
	"github.com/evmrelay/gas-price-cache/pkg/metrics"
)

func cmdCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		sig := <-ch
		fmt.Fprintf(os.Stderr, "Signal %q received\n", sig)
		cancel()
	}()
	return ctx
}

// app holds everything a subcommand needs: the parsed config, node
// clients wrapped in a price source, and the cache on top.
type app struct {
	log     *zap.Logger
	config  config.Config
	cache   *gascache.Cache
	clients map[uint64]*ethclient.Client

	close func()
}

func openApp(ctx context.Context, rootConfig *rootConfig) (*app, error) {
	log, err := openLog(rootConfig.DataDir)
	if err != nil {
		return nil, err
	}

	configPath, err := homedir.Expand(rootConfig.ConfigPath)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	source := eth.NewSource()
	clients := make(map[uint64]*ethclient.Client, len(cfg.Networks))
	closeClients := func() {
		for _, client := range clients {
			client.Close()
		}
	}
	for _, network := range cfg.Networks {
		client, err := ethclient.DialContext(ctx, network.NodeURL)
		if err != nil {
			closeClients()
			return nil, errs.New("unable to dial %q node: %v", network.Name, err)
		}
		clients[network.ChainID] = client
		source.AddChain(network.ChainID, client)
	}

	cache, err := gascache.New(gascache.Config{
		Log:      log,
		Source:   source,
		Networks: cfg.CacheConfigs(),
		Observer: metrics.Observer{},
	})
	if err != nil {
		closeClients()
		return nil, err
	}

	return &app{
		log:     log,
		config:  cfg,
		cache:   cache,
		clients: clients,
		close: func() {
			closeClients()
			_ = log.Sync()
		},
	}, nil
}

// networksByChainID returns the configured networks ordered by chain ID
// so repeated runs print in a stable order.
func networksByChainID(cfg config.Config) []config.Network {
	byID := make(map[uint64]config.Network, len(cfg.Networks))
	for _, network := range cfg.Networks {
		byID[network.ChainID] = network
	}
	ids := maps.Keys(byID)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	networks := make([]config.Network, 0, len(ids))
	for _, id := range ids {
		networks = append(networks, byID[id])
	}
	return networks
}

// printQuotes prints one line per configured network and returns how
// many of them failed.
func printQuotes(ctx context.Context, app *app) int {
	failed := 0
	for _, network := range networksByChainID(app.config) {
		prices, err := app.cache.GasPrice(ctx, network.ChainID)
		if err != nil {
			fancy.Errorf("%-14s chain=%-10d error: %v\n", network.Name, network.ChainID, err)
			failed++
			continue
		}
		_, freshness := app.cache.Inspect(network.ChainID)
		fancy.Infof("%-14s chain=%-10d gas=%-14s tip=%-14s base=%-14s [%s]\n",
			network.Name, network.ChainID,
			eth.GweiString(prices.GasPrice),
			eth.GweiString(prices.TipCap),
			eth.GweiString(prices.BaseFee),
			freshness)
	}
	return failed
}
