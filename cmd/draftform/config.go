package main

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/draftform/internal/config"
	"github.com/vango-dev/draftform/internal/errors"
)

// loadConfig reads path, or the working directory's config file when path is
// empty. A missing default file yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
		var e *errors.Error
		if stderrors.As(err, &e) && e.Code == "E100" {
			cfg, err = config.New(), nil
			cfg.ApplyEnv(os.LookupEnv)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Long: `Write draftform.json (or the given path) with every default spelled out.
A path ending in .yaml or .yml is written as YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.JSONFileName
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.CategoryCLI, "%s already exists", path).
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd, "Wrote %s", filepath.Clean(path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
