package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/logx"
)

var appCfg config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "loadmore",
	Short: "loadmore scrapes the product listings of a \"load more\" demo shop into CSV files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appCfg, err = config.GetAppConfig()
		if err != nil {
			return err
		}
		logx.Init(logx.ParseEnvironment(appCfg.Environment))
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. An interrupt cancels the run so the browser is
// still released.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logx.Fatal().Err(err).Msg("loadmore failed")
	}
}
