// Package cli is the command line of an imago application.
//
// An application builds its binary around NewRootCommand, handing it the
// function that registers its bindings and routes:
//
//	func main() {
//	    os.Exit(cli.Execute(cli.NewRootCommand("shop", setup)))
//	}
//
// The commands read imago.json and environment.yaml from the project
// directory.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/imago-dev/imago"
	ierrors "github.com/imago-dev/imago/internal/errors"
)

// Version information set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Setup registers the plugins, bindings and routes of an application.
type Setup func(app *imago.App) error

// NewRootCommand creates the command tree of the application called name.
func NewRootCommand(name string, setup Setup) *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   name,
		Short: "Serve the " + name + " isomorphic application",
		Long: `Serve an imago application.

Pages are rendered on the server and revived by the client. The project
directory holds imago.json and the environment file selecting the
settings of each deployment environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || !isTerminal(cmd.ErrOrStderr()) {
				ierrors.DisableColors()
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored error output")

	root.AddCommand(
		serveCmd(setup),
		routesCmd(setup),
		configCmd(),
		initCmd(),
		versionCmd(name),
	)
	return root
}

// Execute runs cmd, prints its error and returns the process exit code.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		ierrors.PrintError(err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func versionCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s)\n", name, Version, Commit, Date)
		},
	}
}
