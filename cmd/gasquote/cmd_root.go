package main

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "~/.gasquote.toml"

	defaultDataDir = "."
)

type rootConfig struct {
	Ctx context.Context

	ConfigPath string
	DataDir    string
}

func newRootCommand() *cobra.Command {
	config := new(rootConfig)
	cmd := &cobra.Command{
		Use:   "gasquote",
		Short: "Query cached gas prices for configured EVM networks",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			config.Ctx = cmdCtx()
			return nil
		},
		Version: getVersion(),
	}
	cmd.PersistentFlags().StringVarP(
		&config.ConfigPath,
		"config", "",
		defaultConfigPath,
		"Path to the networks config file")
	cmd.PersistentFlags().StringVarP(
		&config.DataDir,
		"data-dir", "",
		defaultDataDir,
		"Directory to store data (e.g. logs)")

	cmd.AddCommand(newPriceCommand(config))
	cmd.AddCommand(newWatchCommand(config))
	return cmd
}

func getVersion() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	return fmt.Sprintf("%s (built with %s)\n", buildInfo.Main.Version, runtime.Version())
}
