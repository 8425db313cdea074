package cli

import (
	"strconv"
	"strings"

	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:       "list <leads|emails>",
	Short:     "List stored records, oldest first",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"leads", "emails"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseRecordKind(args[0])
		if err != nil {
			return err
		}

		return withApp(func(app *App) error {
			backend, err := app.Integration(kind)
			if err != nil {
				return err
			}

			records, err := backend.Query(cmd.Context(), nil, integrations.SortSpec{
				Timestamp: "created_time",
				Direction: integrations.Ascending,
			})
			if err != nil {
				return err
			}

			if PrintJSON(records) {
				return nil
			}
			if len(records) == 0 {
				PrintInfof("No %s", kind)
				return nil
			}

			recordTable(kind, records).Print()
			return nil
		})
	},
}

func recordTable(kind types.RecordKind, records []types.Record) *Table {
	switch kind {
	case types.RecordKindEmail:
		table := NewTable("PAGE", "SUBJECT", "TYPE", "STATUS", "RECIPIENT")
		for _, r := range records {
			email := types.EmailFromRecord(r)
			table.AddRow(
				email.PageID.String(),
				Truncate(email.Object, 48),
				email.Type,
				email.Status,
				joinRefs(email.Recipient),
			)
		}
		return table
	default:
		table := NewTable("ID", "PAGE", "NAME", "EMAIL", "STATUS", "DRAFTS")
		for _, r := range records {
			lead := types.LeadFromRecord(r)
			table.AddRow(
				strconv.FormatInt(lead.Number, 10),
				lead.PageID.String(),
				Truncate(lead.Name, 32),
				lead.EmailAddress,
				lead.ContactStatus,
				strconv.Itoa(len(lead.Emails)),
			)
		}
		return table
	}
}

func joinRefs(refs []types.Reference) string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return strings.Join(ids, ",")
}

var archiveCmd = &cobra.Command{
	Use:   "archive <leads|emails> <page_id>",
	Short: "Archive a stored record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseRecordKind(args[0])
		if err != nil {
			return err
		}
		id := types.RecordID(args[1])

		return withApp(func(app *App) error {
			backend, err := app.Integration(kind)
			if err != nil {
				return err
			}
			if err := backend.Archive(cmd.Context(), id); err != nil {
				return err
			}

			if PrintJSON(map[string]any{"kind": kind, "id": id, "archived": true}) {
				return nil
			}
			PrintSuccessf("Archived %s", CodeStyle.Render(id.String()))
			return nil
		})
	},
}
