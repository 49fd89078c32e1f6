package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imago-dev/imago/internal/config"
	ierrors "github.com/imago-dev/imago/internal/errors"
)

const environmentTemplate = `prod:
  $Server:
    port: %d
  $Language:
    "*": en
  $Cache:
    enabled: true
    ttl: 60s
  $App:
    title: %s

dev:
  $Debug: true
  $Cache:
    enabled: false
`

func initCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the project files in a directory",
		Long: `Create imago.json, environment.yaml and the static directory.

Examples:
  imago init
  imago init ./shop --name=shop`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			created, err := initProject(dir, name)
			if err != nil {
				return err
			}
			for _, path := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "  created %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Application name (default: the directory name)")
	return cmd
}

// initProject writes the project files into dir and returns their paths.
// Existing files other than imago.json are kept.
func initProject(dir, name string) ([]string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if config.Exists(dir) {
		return nil, ierrors.New("E123").
			WithDetail(dir + " already contains " + config.ConfigFileName).
			WithSuggestion("Edit the existing configuration or choose another directory")
	}
	if name == "" {
		name = filepath.Base(dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	cfg := config.New()
	cfg.Name = name
	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return nil, err
	}
	created := []string{path}

	envPath := filepath.Join(dir, config.EnvironmentFileName)
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		data := fmt.Sprintf(environmentTemplate, config.DefaultPort, name)
		if err := os.WriteFile(envPath, []byte(data), 0o644); err != nil {
			return created, err
		}
		created = append(created, envPath)
	}

	staticDir := filepath.Join(dir, config.DefaultStaticDir)
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		if err := os.Mkdir(staticDir, 0o755); err != nil {
			return created, err
		}
		created = append(created, staticDir)
	}
	return created, nil
}
