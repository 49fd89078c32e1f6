package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imago-dev/imago"
	ierrors "github.com/imago-dev/imago/internal/errors"
)

func serveCmd(setup Setup) *cobra.Command {
	var (
		flags   projectFlags
		port    int
		host    string
		metrics bool
		tracing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server of the application.

The address comes from the environment's $Server setting, falling back
to the server section of imago.json.

Examples:
  imago serve
  imago serve --env=dev --port=8080
  IMAGO_ENV=dev imago serve --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, env, err := flags.load()
			if err != nil {
				return err
			}
			if port > 0 {
				env.Server.Port = port
			}
			if host != "" {
				env.Server.Host = host
			}

			app, closer, err := newApp(project, env, appOptions{
				metrics: metrics,
				tracing: tracing,
				logOut:  cmd.ErrOrStderr(),
			}, setup)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := env.Server.Host + ":" + strconv.Itoa(env.Server.Port)
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s on http://%s\n", project.Name, env.Name, addr)
			if err := app.Run(ctx, addr); err != nil {
				return ierrors.New("E120").
					WithDetail("The server on " + addr + " stopped.").
					Wrap(err)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from the environment)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from the environment)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Serve Prometheus metrics at "+imago.MetricsPath)
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Trace managed pages with OpenTelemetry")
	return cmd
}
