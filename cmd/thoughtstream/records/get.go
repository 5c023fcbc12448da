package recordscmder

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/client"
	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
)

const getLongDesc string = `Show one thought record.

Without an ID, shows the last record streamed by "thoughtstream reframe".

Examples:
  thoughtstream records get
  thoughtstream records get 6f1c0e0a-0b8e-4c1e-9d55-2f0f5b3c7a11`

const getShortDesc string = "Show a thought record"

// errNoLastRecord is returned by get without an ID before anything was streamed.
var errNoLastRecord = errors.New(`no record ID given and no previous record; run "thoughtstream reframe" first`)

func newGetCmd(parent *recordsCommander) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, fromLast, err := parent.resolveID(args)
			if err != nil {
				return err
			}

			rc := client.NewRecordsClient(parent.target(), nil)
			rec, err := rc.Get(cmd.Context(), id)
			if err != nil {
				if client.IsStatus(err, http.StatusNotFound) {
					if fromLast {
						// The API no longer has it, so stop offering it as the default.
						_ = dotdir.NewManager().ClearLastRecord(parent.configDir)
					}
					return fmt.Errorf("record %s not found", id)
				}
				return fmt.Errorf("getting record: %w", err)
			}

			out := cmd.OutOrStdout()
			if !plain && cliui.IsTerminal(out) {
				md, err := cliui.RenderMarkdown(cliui.RecordMarkdown(rec))
				if err == nil {
					fmt.Fprint(out, md)
					return nil
				}
			}

			fmt.Fprint(out, cliui.RenderRecordPlain(rec))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print plain key: value lines even on a terminal")

	return cmd
}

// resolveID returns the record to show and whether it came from state.toml.
func (c *recordsCommander) resolveID(args []string) (string, bool, error) {
	if len(args) == 1 {
		return args[0], false, nil
	}

	last, err := dotdir.NewManager().LoadLastRecord(c.configDir)
	if err != nil {
		return "", false, err
	}
	if last == nil || last.ID == "" {
		return "", false, errNoLastRecord
	}
	return last.ID, true, nil
}
