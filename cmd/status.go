package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/state"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status of a running scanner",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := statusAddr
		if addr == "" {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			addr = cfg.Control.Listen
		}

		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get("http://" + addr + "/status")
		if err != nil {
			return fmt.Errorf("scanner not reachable at %s: %w", addr, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status request failed: %s: %s", resp.Status, body)
		}

		var snap state.Snapshot
		if err := json.Unmarshal(body, &snap); err != nil {
			return fmt.Errorf("failed to decode status: %w", err)
		}
		printStatus(cmd.OutOrStdout(), snap)
		return nil
	},
}

func printStatus(w io.Writer, snap state.Snapshot) {
	mode := "live"
	if snap.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(w, "running: %t (%s), uptime %ds\n", snap.Running, mode, snap.UptimeSec)
	fmt.Fprintf(w, "ticks: %d  scans: %d  evaluated: %d  profitable: %d\n",
		snap.Stats.Ticks, snap.Stats.Scans, snap.Stats.OpportunitiesEvaluated, snap.Stats.ProfitableFound)
	fmt.Fprintf(w, "trades: %d attempted, %d succeeded, win rate %s%%\n",
		snap.Stats.TradesAttempted, snap.Stats.TradesSucceeded, snap.Stats.WinRate.String())
	fmt.Fprintf(w, "net profit: $%s (gas $%s)\n", snap.Stats.NetProfitUsd.StringFixed(2), snap.Stats.TotalGasUsd.StringFixed(2))

	fmt.Fprintln(w, "chains:")
	for _, c := range snap.Chains {
		fmt.Fprintf(w, "  %-10s connected=%t balance=%s\n", c.Key, c.Connected, c.BalanceEth)
	}
	fmt.Fprintln(w, "strategies:")
	for _, s := range snap.Strategies {
		fmt.Fprintf(w, "  %-16s enabled=%t scans=%d profitable=%d errors=%d\n", s.Name, s.Enabled, s.Scans, s.Profitable, s.Errors)
	}
	if len(snap.Opportunities) > 0 {
		best := snap.Opportunities[0]
		fmt.Fprintf(w, "best: %s %s on %s net $%s\n", best.Strategy, best.Route, best.Chain, best.NetProfitUsd.StringFixed(4))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "control server address (defaults to the configured listen address)")
}
