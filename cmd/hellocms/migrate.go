package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellocms/internal/app"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes (no-op en backends key-value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, err := app.OpenStore(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := app.Migrate(ctx, conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver=%s applied=%v skipped=%v duration=%s\n",
				conn.Name(), res.Applied, res.Skipped, res.Duration)
			return nil
		},
	}
}
