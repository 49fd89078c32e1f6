// Command imago serves the starter application of the framework. Real
// applications copy this command and replace the setup in app.go with
// their own bindings and routes.
package main

import (
	"os"

	"github.com/imago-dev/imago/pkg/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version, cli.Commit, cli.Date = version, commit, date
	os.Exit(cli.Execute(cli.NewRootCommand("imago", setup)))
}
