package cli

import (
	"fmt"

	"github.com/beam-cloud/onleads/pkg/integrations/notion"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type backendStatus struct {
	Kind      types.RecordKind `json:"kind"`
	Connected bool             `json:"connected"`
	Error     string           `json:"error,omitempty"`
}

type statusReport struct {
	Mode           string          `json:"mode"`
	Lock           string          `json:"lock"`
	NotionAPICalls int64           `json:"notion_api_calls"`
	Backends       []backendStatus `json:"backends"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect to every record backend and report the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			kinds := app.Registry.Kinds()
			statuses := make([]backendStatus, len(kinds))

			var g errgroup.Group
			for i, kind := range kinds {
				backend, err := app.Integration(kind)
				if err != nil {
					return err
				}
				g.Go(func() error {
					statuses[i] = backendStatus{Kind: kind, Connected: true}
					if err := backend.Connect(cmd.Context()); err != nil {
						statuses[i] = backendStatus{Kind: kind, Error: err.Error()}
						return err
					}
					return nil
				})
			}
			connectErr := g.Wait()

			report := statusReport{
				Mode:           app.Config.Mode,
				Lock:           lockName(app),
				NotionAPICalls: notion.GetAPICallCount(),
				Backends:       statuses,
			}
			if !PrintJSON(report) {
				PrintKeyValue("Mode", report.Mode)
				PrintKeyValue("Lock", report.Lock)
				if !app.Config.IsLocalMode() {
					PrintKeyValue("Notion API calls", fmt.Sprint(report.NotionAPICalls))
				}
				for _, s := range statuses {
					if s.Connected {
						PrintSuccessf("%s connected", s.Kind)
					} else {
						PrintWarning(fmt.Sprintf("%s: %s", s.Kind, s.Error))
					}
				}
			}
			return connectErr
		})
	},
}

func lockName(app *App) string {
	if app.redis != nil {
		return "redis"
	}
	return "local"
}
