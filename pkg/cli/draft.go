package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beam-cloud/onleads/pkg/workflows"
	"github.com/spf13/cobra"
)

type draftOutput struct {
	LeadID  string `json:"lead_id"`
	EmailID string `json:"email_id"`
	Created bool   `json:"created"`
	Object  string `json:"object,omitempty"`
	Body    string `json:"body,omitempty"`
}

func newDraftOutput(r *workflows.DraftResult) draftOutput {
	out := draftOutput{
		LeadID:  r.LeadID.String(),
		EmailID: r.EmailID.String(),
		Created: r.Created,
	}
	if r.Email != nil {
		out.Object = r.Email.Object
		out.Body = r.Email.Body
	}
	return out
}

var draftCmd = &cobra.Command{
	Use:   "draft <lead_id> <prompt...>",
	Short: "Draft the first-contact email of one lead",
	Long: `Draft the first-contact email of the lead with the given sequential ID.
Nothing is written when the lead already has one.`,
	Example: `  onleads draft 42 "We build onboarding tooling for fintech teams"`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid lead id %q", args[0])
		}
		prompt := strings.Join(args[1:], " ")

		return withApp(func(app *App) error {
			result, err := app.Drafter.DraftFirstContact(cmd.Context(), leadID, prompt)
			if err != nil {
				return err
			}

			if PrintJSON(newDraftOutput(result)) {
				return nil
			}

			if !result.Created {
				PrintInfof("Lead %d already has a first contact %s", leadID, CodeStyle.Render(result.EmailID.String()))
				return nil
			}
			printDraft(result)
			return nil
		})
	},
}

var draftAllCmd = &cobra.Command{
	Use:   "draft-all <prompt...>",
	Short: "Draft first-contact emails for every lead",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		return withApp(func(app *App) error {
			results, err := app.Drafter.DraftAllFirstContacts(cmd.Context(), prompt)
			if err != nil {
				return err
			}

			if IsJSONOutput() {
				out := make([]draftOutput, 0, len(results))
				for _, r := range results {
					out = append(out, newDraftOutput(r))
				}
				PrintJSON(out)
				return nil
			}

			if len(results) == 0 {
				PrintInfo("No new drafts")
				return nil
			}
			for _, r := range results {
				printDraft(r)
			}
			PrintSuccessf("Drafted %d emails", len(results))
			return nil
		})
	},
}

func printDraft(r *workflows.DraftResult) {
	PrintHeader(CodeStyle.Render(r.Email.Object))
	PrintKeyValue("Lead", r.LeadID.String())
	PrintKeyValue("Email", r.EmailID.String())
	PrintKeyValue("Body", Truncate(strings.ReplaceAll(r.Email.Body, "\n", " "), 72))
}
