package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellocms/internal/app"
	"github.com/dropDatabas3/hellocms/internal/collection"
)

func newCollectionsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "Valida y lista las colecciones configuradas",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := app.LoadRegistry(g.cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SLUG\tVERSION\tUNIQUE\tFIELDS\tREAD\tCREATE\tUPDATE\tDELETE")
			for _, slug := range reg.Slugs() {
				col, err := reg.Lookup(slug)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%t\t%d\t%s\t%s\t%s\t%s\n",
					col.Slug, col.Version, col.Unique, len(col.Fields),
					roles(col, collection.VerbRead), roles(col, collection.VerbCreate),
					roles(col, collection.VerbUpdate), roles(col, collection.VerbDelete))
			}
			return tw.Flush()
		},
	}
}

func roles(col *collection.Collection, v collection.Verb) string {
	r := col.Roles(v)
	if len(r) == 0 {
		return "-"
	}
	return strings.Join(r, ",")
}
