package cli

import (
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/beam-cloud/onleads/pkg/workflows"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Scrape a page and store its contacts as leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			leads, err := app.Integration(types.RecordKindLead)
			if err != nil {
				return err
			}

			ids, err := workflows.CrawlAndStoreContacts(cmd.Context(), args[0], app.Extractor, leads)
			if err != nil {
				return err
			}

			if PrintJSON(map[string]any{"url": args[0], "leads": ids}) {
				return nil
			}

			if len(ids) == 0 {
				PrintWarning("No contacts found")
				return nil
			}
			PrintSuccessf("Stored %d leads from %s", len(ids), CodeStyle.Render(args[0]))
			for _, id := range ids {
				PrintBullet(id.String())
			}
			PrintHint("Run `onleads draft <lead_id> <prompt>` to write a first contact")
			return nil
		})
	},
}
