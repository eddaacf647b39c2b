package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/draftform/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errorFormat is the --error-format value used when main reports a failure.
var errorFormat = string(errors.StylePretty)

func main() {
	if err := rootCmd().Execute(); err != nil {
		style, perr := errors.ParseStyle(errorFormat)
		if perr != nil {
			style = errors.StylePretty
		}
		errors.Fprint(os.Stderr, err, style)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		noColor    bool
	)

	root := &cobra.Command{
		Use:   "draftform",
		Short: "Draft-backed admin form service",
		Long: `draftform serves admin record screens whose edits are mirrored to a
shared draft, so a user can navigate away and come back to the same form.

Submits are gated on the form being both edited and valid, and the record
is transformed into its wire shape before it is posted to the API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				errors.DisableColors()
			}
			if _, err := errors.ParseStyle(errorFormat); err != nil {
				errorFormat = string(errors.StylePretty)
				return errors.Newf(errors.CategoryCLI, "%s", err.Error())
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: draftform.json or draftform.yaml in the working directory)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Print errors without ANSI colors")
	root.PersistentFlags().StringVar(&errorFormat, "error-format", string(errors.StylePretty), "How failures are printed: pretty, compact or json")

	root.AddCommand(
		serveCmd(&configPath),
		validateCmd(),
		configCmd(),
		versionCmd(),
	)
	return root
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}
