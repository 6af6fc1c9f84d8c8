package main

import (
	"fmt"
	"os"

	"humorize/config"
	"humorize/utils"

	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "humorize",
		Short: "Group photo captioning galleries",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if cfg, err = config.Load(); err != nil {
				return err
			}
			utils.SetupLogger(cfg.LogLevel, cfg.LogPretty)
			return nil
		},
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(keysCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
