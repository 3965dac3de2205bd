package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trading_terminal/internal/app"
	"trading_terminal/internal/config"
	"trading_terminal/internal/logger"
	"trading_terminal/internal/view"
)

// cli carries what every subcommand needs once the root has initialized.
type cli struct {
	cfg    *config.Config
	log    *zap.Logger
	app    *app.App
	output string
	format view.Format
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:           "trading_terminal",
		Short:         "Terminal client for the simulated brokerage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f, err := view.ParseFormat(c.output)
			if err != nil {
				return err
			}
			c.format = f

			c.cfg = config.Load()
			c.log = logger.Setup(c.cfg.LogLevel, c.cfg.LogFile, c.cfg.MaxLogSizeMB, c.cfg.MaxLogBackups)
			c.log.Sugar().Debugw("starting", "api", c.cfg.APIBaseURL, "push", c.cfg.PushURL, "command", cmd.Name())
			c.app = app.New(c.cfg, c.log.Sugar())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.output, "output", "o", "table", "output format: table, json, yaml or csv")

	root.AddCommand(
		c.brokersCmd(),
		c.loginCmd(),
		c.adminCmd(),
		c.openCmd(),
		c.stocksCmd(),
		c.portfolioCmd(),
		c.tradeCmd("buy"),
		c.tradeCmd("sell"),
		c.tradingCmd(),
		c.watchCmd(),
		c.shellCmd(),
	)
	return root, c
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}
