// Package thoughtstreamcmder
package thoughtstreamcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/auth"
	configcmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/config"
	recordscmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/records"
	reframecmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/reframe"
	servecmder "github.com/papercomputeco/thoughtstream/cmd/thoughtstream/serve"
	versioncmder "github.com/papercomputeco/thoughtstream/cmd/version"
)

const thoughtstreamLongDesc string = `Thoughtstream streams structured thought records from an LLM
and renders them field by field while the model is still writing.

Run services using:
  thoughtstream serve api      Run the record API server
  thoughtstream serve proxy    Run the streaming gateway
  thoughtstream serve          Run both servers together

Reframe a thought:
  thoughtstream reframe "I always mess up presentations"

Store a provider key for the gateway:
  thoughtstream auth openai`

const thoughtstreamShortDesc string = "Thoughtstream - streaming thought records"

func NewThoughtstreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "thoughtstream",
		Short:        thoughtstreamShortDesc,
		Long:         thoughtstreamLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .thoughtstream/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(reframecmder.NewReframeCmd())
	cmd.AddCommand(recordscmder.NewRecordsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
