package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func routesCmd(setup Setup) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes in matching order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, env, err := flags.load()
			if err != nil {
				return err
			}
			app, closer, err := newApp(project, env, appOptions{logOut: io.Discard}, setup)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer app.Close()

			routes, err := app.RouteTable()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tCONTROLLER\tVIEW")
			for _, r := range routes {
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", r.Name, r.Path, r.Controller, r.View)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}
