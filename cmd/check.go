package cmd

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/arbscanner/chain"
	"github.com/michaelpento.lv/arbscanner/cmd/bot"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/utils"
	umath "github.com/michaelpento.lv/arbscanner/utils/math"
	"github.com/michaelpento.lv/arbscanner/utils/metrics"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the environment, wallet and RPC endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		log := utils.GetLogger()

		if err := config.LoadEnv(".env"); err != nil {
			fmt.Fprintf(out, "no .env file: %v\n", err)
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}

		fmt.Fprintln(out, "Environment:")
		for _, key := range []string{config.EnvPostgresDSN, config.EnvRedisAddr} {
			fmt.Fprintf(out, "  %-14s set=%t\n", key, os.Getenv(key) != "")
		}

		secrets, err := config.LoadSecrets()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wallet: %s\n", secrets.Address.Hex())

		chains, err := bot.DialChains(cmd.Context(), cfg, secrets, log)
		if err != nil {
			return err
		}

		minBalance, err := umath.ParseUnits(cfg.MinLiveBalance, 18)
		if err != nil {
			return err
		}
		registry := chain.NewRegistry(chains, minBalance, metrics.New("arbscanner", prometheus.NewRegistry()), log)
		registry.Refresh(cmd.Context())

		live := make(map[string]bool)
		for _, c := range registry.Live() {
			live[c.Key] = true
		}

		fmt.Fprintln(out, "Chains:")
		for _, st := range registry.Statuses() {
			balance := "n/a"
			if st.Balance != nil {
				balance = umath.ToDecimal(st.Balance, 18).String() + " ETH"
			}
			fmt.Fprintf(out, "  %-10s connected=%t live=%t balance=%s", st.Key, st.Connected, live[st.Key], balance)
			if st.LastError != "" {
				fmt.Fprintf(out, " error=%q", st.LastError)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
