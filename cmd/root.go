package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/arbscanner/utils"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "arbscanner",
	Short: "A multi-chain DEX arbitrage scanner",
	Long: `A CLI arbitrage scanner that rotates across Base, Arbitrum and Optimism,
quotes Uniswap V3 and SushiSwap routes, ranks opportunities net of gas and
fees and executes the best one on chain or in dry-run mode.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file in JSON, YAML or TOML (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
