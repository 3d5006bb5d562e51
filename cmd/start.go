package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbscanner/cmd/bot"
	"github.com/michaelpento.lv/arbscanner/config"
	"github.com/michaelpento.lv/arbscanner/utils"
)

var (
	dryRun    bool
	listen    string
	noAutorun bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start scanning",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()
		defer utils.CleanupLogger()

		// .env is optional
		if err := config.LoadEnv(".env"); err != nil {
			log.Debug("No .env file loaded", zap.Error(err))
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}
		cfg.ApplyEnvOverrides()
		if listen != "" {
			cfg.Control.Listen = listen
		}
		if err := cfg.Validate(); err != nil {
			log.Fatal("Invalid configuration", zap.Error(err))
		}

		secrets, err := config.LoadSecrets()
		if err != nil {
			log.Fatal("Failed to load wallet", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		chains, err := bot.DialChains(ctx, cfg, secrets, log)
		if err != nil {
			log.Fatal("Failed to connect to chains", zap.Error(err))
		}

		scanner, err := bot.New(cfg, chains, bot.Options{}, log)
		if err != nil {
			log.Fatal("Failed to create scanner", zap.Error(err))
		}
		scanner.AttachStores(ctx)

		log.Info("Starting arbscanner",
			zap.String("wallet", secrets.Address.Hex()),
			zap.Int("chains", len(chains)),
			zap.Bool("dry_run", dryRun),
			zap.String("control", cfg.Control.Listen),
		)
		if err := scanner.Run(ctx, !noAutorun, dryRun); err != nil {
			log.Fatal("Scanner stopped with error", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scan and rank without executing")
	startCmd.Flags().StringVar(&listen, "listen", "", "control server address (overrides config)")
	startCmd.Flags().BoolVar(&noAutorun, "idle", false, "wait for POST /start instead of scanning immediately")
}
