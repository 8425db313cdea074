package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Build information (injected at compile time via ldflags)
var Version = "dev"

var (
	configPath string
	jsonOutput bool
)

// loadApp builds the collaborators for a command. Replaced in tests.
var loadApp = LoadApp

// Custom help template with styled output
var helpTemplate = `{{with .Long}}{{. | trim}}

{{end}}{{if .HasAvailableSubCommands}}` + `{{.CommandPath}}` + ` ` + `<command>` + `

{{end}}{{if .HasAvailableSubCommands}}Commands:
{{range .Commands}}{{if .IsAvailableCommand}}  {{rpad .Name .NamePadding }}  {{.Short}}
{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}
`

var rootCmd = &cobra.Command{
	Use:   "onleads",
	Short: "Lead ingestion and first-contact drafting",
	Long: lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Render("onleads") + ` - Lead ingestion and first-contact drafting

Scrape contacts from web pages into a leads database, then draft one
first-contact email per lead with a language model.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		SetJSONOutput(jsonOutput)
	},
}

func init() {
	rootCmd.SetHelpTemplate(helpTemplate)
	rootCmd.SetVersionTemplate(fmt.Sprintf("  %s version %s\n", BrandStyle.Render("onleads"), Version))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnv("CONFIG_PATH", ""), "Config file (yaml or json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(draftAllCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the CLI until ctx is done
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !IsJSONOutput() {
		PrintError(err)
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// withApp loads the app, runs fn and releases the app's connections
func withApp(fn func(app *App) error) error {
	app, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
