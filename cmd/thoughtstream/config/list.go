package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by TOML section, with defaults filled in for keys
config.toml leaves unset.

Examples:
  thoughtstream config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := openConfiger(cmd)
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			out := cmd.OutOrStdout()
			section := ""
			for _, key := range keys {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}

				if s, _, _ := strings.Cut(key, "."); s != section {
					if section != "" {
						fmt.Fprintln(out)
					}
					section = s
					fmt.Fprintf(out, "  %s\n", cliui.TitleStyle.Render("["+s+"]"))
				}
				printValue(out, key, value, width)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
