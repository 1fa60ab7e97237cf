package main

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"github.com/evmrelay/gas-price-cache/pkg/extrafee"
	"github.com/evmrelay/gas-price-cache/pkg/fancy"
)

type priceConfig struct {
	*rootConfig

	Calldata string
}

func newPriceCommand(rootConfig *rootConfig) *cobra.Command {
	config := &priceConfig{
		rootConfig: rootConfig,
	}
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print a gas price quote for every configured network",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doPrice(config)
		},
	}
	cmd.Flags().StringVarP(
		&config.Calldata,
		"calldata", "",
		"",
		"Hex transaction calldata to price the OP-stack L1 data fee for")
	return cmd
}

func doPrice(config *priceConfig) error {
	app, err := openApp(config.Ctx, config.rootConfig)
	if err != nil {
		return err
	}
	defer app.close()

	fancy.Headlinef(":fuelpump: Gas prices")
	failed := printQuotes(config.Ctx, app)

	if config.Calldata != "" {
		if err := printDataFees(config, app); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errs.New("%d of %d networks failed", failed, len(app.config.Networks))
	}
	return nil
}

// printDataFees prints the estimated L1 data fee for the payload on
// every configured network that charges one.
func printDataFees(config *priceConfig, app *app) error {
	payload, err := hexutil.Decode(config.Calldata)
	if err != nil {
		return errs.New("invalid calldata: %v", err)
	}

	fancy.Headlinef(":receipt: L1 data fees (%d byte payload)", len(payload))
	for _, network := range networksByChainID(app.config) {
		calculator := extrafee.NewCalculator(network.ChainID, app.clients[network.ChainID])
		if !calculator.HasExtraFee() {
			continue
		}
		fee, err := calculator.ExtraFee(config.Ctx, payload)
		if err != nil {
			fancy.Errorf("%-14s chain=%-10d error: %v\n", network.Name, network.ChainID, err)
			continue
		}
		fancy.Infof("%-14s chain=%-10d datafee=%s wei\n", network.Name, network.ChainID, fee)
	}
	return nil
}
