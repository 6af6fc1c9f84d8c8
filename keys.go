package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect the caption service key pool",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which keys are usable and when quarantined keys come back",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			pool, err := newKeyPool(cfg, database)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pool.Status(context.Background()))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Lift all quarantines and rewind the rotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			pool, err := newKeyPool(cfg, database)
			if err != nil {
				return err
			}
			return pool.Reset(context.Background())
		},
	})
	return cmd
}
