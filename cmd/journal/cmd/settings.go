package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradejournal/rules"
	"github.com/rustyeddy/tradejournal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Generate, validate or show the rule settings document",
	Long: `Manage the settings document that holds your trading rules.

Subcommands:
  init     - Write a default settings document
  validate - Report every problem in a settings document
  show     - Print the settings in effect

Examples:
  journal settings init -o settings.yaml
  journal settings validate -f settings.yaml`,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default settings document",
	RunE:  runSettingsInit,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a settings document",
	RunE:  runSettingsValidate,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings in effect as YAML",
	RunE:  runSettingsShow,
}

var (
	settingsInitOutput string
	settingsInitForce  bool
	settingsFile       string
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsInitCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsShowCmd)

	settingsInitCmd.Flags().StringVarP(&settingsInitOutput, "output", "o", "", "output path (default journal.settings_path)")
	settingsInitCmd.Flags().BoolVar(&settingsInitForce, "force", false, "overwrite an existing file")
	settingsValidateCmd.Flags().StringVarP(&settingsFile, "file", "f", "", "settings file (default journal.settings_path)")
}

func runSettingsInit(cmd *cobra.Command, args []string) error {
	out := settingsInitOutput
	if out == "" {
		out = cfg.Journal.SettingsPath
	}
	if _, err := os.Stat(out); err == nil && !settingsInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", out)
	}
	if err := settings.Default().SaveToFile(out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", out)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, args []string) error {
	path := settingsFile
	if path == "" {
		path = cfg.Journal.SettingsPath
	}
	s, err := settings.LoadFromFile(path)
	if err != nil {
		return err
	}
	if err := checkSettings(s); err != nil {
		return fmt.Errorf("%s is invalid:\n%w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}

// checkSettings adds the metric names only the rule engine knows to the
// document's own validation.
func checkSettings(s *settings.Settings) error {
	errs := []error{s.Validate()}
	if re := s.RuleEngine(); re != nil {
		for i, r := range re.Rules {
			if !rules.KnownMetric(r.Metric) {
				errs = append(errs, fmt.Errorf("ruleEngine.rules[%d]: unknown metric %q (known: %v)", i, r.Metric, rules.Metrics()))
			}
		}
	}
	return errors.Join(errs...)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
