package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evmrelay/gas-price-cache/pkg/fancy"
)

const defaultWatchInterval = 5 * time.Second

type watchConfig struct {
	*rootConfig

	Interval    time.Duration
	MetricsAddr string
}

func newWatchCommand(rootConfig *rootConfig) *cobra.Command {
	config := &watchConfig{
		rootConfig: rootConfig,
	}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll gas prices on an interval, exercising the cache windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doWatch(config)
		},
	}
	cmd.Flags().DurationVarP(
		&config.Interval,
		"interval", "",
		defaultWatchInterval,
		"How often to poll for quotes")
	cmd.Flags().StringVarP(
		&config.MetricsAddr,
		"metrics-addr", "",
		"",
		"Address to serve prometheus metrics on (e.g. :9090); empty disables")
	return cmd
}

func doWatch(config *watchConfig) error {
	app, err := openApp(config.Ctx, config.rootConfig)
	if err != nil {
		return err
	}
	defer app.close()

	if config.MetricsAddr != "" {
		serveMetrics(app.log, config.MetricsAddr)
	}

	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	for {
		fancy.Headlinef(":fuelpump: Gas prices at %s", time.Now().Format(time.TimeOnly))
		printQuotes(config.Ctx, app)

		select {
		case <-ticker.C:
		case <-config.Ctx.Done():
			fancy.Warnf("interrupted\n")
			return nil
		}
	}
}

func serveMetrics(log *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("Metrics endpoint failed", zap.Error(err))
		}
	}()
}
