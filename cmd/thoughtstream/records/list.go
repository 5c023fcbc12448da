package recordscmder

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/client"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/utils"
)

const listLongDesc string = `List the most recent thought records, newest first.

Examples:
  thoughtstream records list
  thoughtstream records list --limit 5`

const listShortDesc string = "List recent thought records"

// titleWidth truncates titles in the list view.
const titleWidth = 48

func newListCmd(parent *recordsCommander) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc := client.NewRecordsClient(parent.target(), nil)
			var recs []reducer.Record
			list := func() (err error) {
				recs, err = rc.List(cmd.Context(), limit)
				return err
			}

			var err error
			if errOut := cmd.ErrOrStderr(); cliui.IsTerminal(errOut) {
				err = cliui.Step(errOut, "Fetching records", list)
			} else {
				err = list()
			}
			if err != nil {
				return fmt.Errorf("listing records: %w", err)
			}
			printList(cmd.OutOrStdout(), recs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to list")

	return cmd
}

func printList(w io.Writer, recs []reducer.Record) {
	if len(recs) == 0 {
		fmt.Fprintf(w, "%s\n", cliui.DimStyle.Render("No records yet."))
		return
	}

	for _, rec := range recs {
		title := cliui.FormatValue(rec.Fields["title"])
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s  %-9s  %s  %s\n",
			rec.ID,
			rec.Status,
			rec.CreatedAt.Local().Format(time.DateTime),
			utils.Truncate(title, titleWidth),
		)
	}
}
