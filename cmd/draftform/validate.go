package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/draftform/internal/errors"
	"github.com/vango-dev/draftform/pkg/features/form"
	"github.com/vango-dev/draftform/pkg/record"
	"github.com/vango-dev/draftform/pkg/users"
)

// validateReport is the --json output of validate.
type validateReport struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
	Wire   record.Draft      `json:"wire,omitempty"`
}

func validateCmd() *cobra.Command {
	var (
		quiet   bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "validate <draft.json>",
		Short: "Check a user draft offline",
		Long: `Validate a user-create draft against the screen's schema.

Valid drafts are printed in the wire shape the API receives: presentation
fields stripped and date fields formatted. Use "-" to read from stdin.
With --json, the result is printed as one JSON object and failures are
reported as JSON errors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				errorFormat = string(errors.StyleJSON)
			}
			draft, err := readDraft(cmd, args[0])
			if err != nil {
				return err
			}

			result := users.Schema().Validate(draft)
			if jsonOut {
				return printReport(cmd, draft, result)
			}
			if !result.Valid() {
				for _, field := range result.Fields() {
					fmt.Fprintf(cmd.OutOrStdout(), "\033[31m✗\033[0m %s: %s\n", field, result[field])
				}
				return errors.New("E140").
					WithDetail(fmt.Sprintf("%d field(s) failed validation.", len(result)))
			}

			success(cmd, "%s is valid", args[0])
			if quiet {
				return nil
			}
			wire := users.Pipeline().Transform(draft.Without(users.FieldMeta))
			data, err := json.MarshalIndent(wire, "", "  ")
			if err != nil {
				return errors.New("E141").Wrap(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the wire draft")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")

	return cmd
}

func printReport(cmd *cobra.Command, draft record.Draft, result form.Result) error {
	report := validateReport{Valid: result.Valid()}
	if report.Valid {
		report.Wire = users.Pipeline().Transform(draft.Without(users.FieldMeta))
	} else {
		report.Errors = result
	}
	data, err := json.Marshal(report)
	if err != nil {
		return errors.New("E141").Wrap(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	if !report.Valid {
		return errors.New("E140").
			WithDetail(fmt.Sprintf("%d field(s) failed validation.", len(result)))
	}
	return nil
}

func readDraft(cmd *cobra.Command, path string) (record.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.New("E141").Wrap(err)
	}

	var draft record.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, errors.New("E141").Wrap(err)
	}
	if draft == nil {
		draft = record.Draft{}
	}
	return draft, nil
}
