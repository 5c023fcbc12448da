// Package recordscmder provides the records command for browsing thought
// records stored by the API server.
package recordscmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/thoughtstream/pkg/config"
)

var recordsFlags = []string{config.FlagAPITarget}

const recordsLongDesc string = `Browse stored thought records.

Use subcommands to list recent records or show one record:
  thoughtstream records list          List the most recent records
  thoughtstream records get [id]      Show a record (default: the last one streamed)`

const recordsShortDesc string = "Browse stored thought records"

type recordsCommander struct {
	apiTarget string
	configDir string
	viper     *viper.Viper
}

func NewRecordsCmd() *cobra.Command {
	cmder := &recordsCommander{}

	cmd := &cobra.Command{
		Use:   "records",
		Short: recordsShortDesc,
		Long:  recordsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, recordsFlags)
			cmder.viper = v
			return nil
		},
	}

	def := config.DefaultFlags[config.FlagAPITarget]
	cmd.PersistentFlags().StringVarP(&cmder.apiTarget, def.Name, def.Shorthand,
		config.NewDefaultConfig().Client.APITarget, def.Description)

	cmd.AddCommand(newListCmd(cmder))
	cmd.AddCommand(newGetCmd(cmder))

	return cmd
}

func (c *recordsCommander) target() string {
	return c.viper.GetString("client.api_target")
}
