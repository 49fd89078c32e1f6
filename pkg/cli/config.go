package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imago-dev/imago/internal/config"
)

func configCmd() *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings of an environment",
		Long: `Print the settings of an environment after merging it over prod and
applying the defaults of imago.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, env, err := flags.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]*config.Environment{env.Name: env}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	flags.register(cmd)
	return cmd
}
