package configcmder

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/config"
)

const initLongDesc string = `Write a fresh config.toml.

Without --preset the file holds the built-in defaults, which point the
gateway at a local Ollama. A preset fills the provider, upstream and model
for a hosted provider. An existing file is kept unless --force is given.

Examples:
  thoughtstream config init
  thoughtstream config init --preset openai
  thoughtstream config init --preset anthropic --force`

const initShortDesc string = "Write a fresh config.toml"

func newInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewDefaultConfig()
			if preset != "" {
				var err error
				if cfg, err = config.PresetConfig(preset); err != nil {
					return err
				}
			}

			cfger, err := openConfiger(cmd)
			if err != nil {
				return err
			}

			path := cfger.GetTarget()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite it", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("checking config file: %w", err)
			}

			if err := cfger.SaveConfig(cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  %s Wrote config for %s (%s)\n\n",
				cliui.SuccessMark,
				cliui.ValueStyle.Render(cfg.Proxy.Provider),
				cliui.DimStyle.Render(cfg.Proxy.Model),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Provider preset (openai, anthropic, ollama)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
