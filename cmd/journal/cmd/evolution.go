package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/evolution"
)

var evolutionCmd = &cobra.Command{
	Use:   "evolution",
	Short: "Assess your level, phase and bottleneck from the journal",
	RunE:  runEvolution,
}

var evolutionJSON bool

func init() {
	rootCmd.AddCommand(evolutionCmd)
	evolutionCmd.Flags().BoolVar(&evolutionJSON, "json", false, "print the assessment as JSON")
}

func runEvolution(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	s, err := loadSettings()
	if err != nil {
		return err
	}
	trades, err := j.List(ctx)
	if err != nil {
		return err
	}
	eng, release, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := eng.Classify(ctx, trades, s)
	if err != nil {
		return err
	}

	if evolutionJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printEvolution(cmd.OutOrStdout(), res)
	return nil
}

func printEvolution(w io.Writer, r evolution.Result) {
	fmt.Fprintf(w, "Level %d: %s\n", r.Level, r.LevelName)
	fmt.Fprintf(w, "Phase:  %s\n", r.PhaseName)
	if r.Bottleneck != nil {
		fmt.Fprintf(w, "Work on: %s\n", *r.Bottleneck)
	} else {
		fmt.Fprintln(w, "Work on: nothing stands out, keep it balanced")
	}

	fmt.Fprintln(w, "\nProgress")
	for _, d := range evolution.Dimensions {
		fmt.Fprintf(w, "  %-24s %6.2f\n", d, r.Progress.Score(d))
	}

	m := r.Metrics
	fmt.Fprintln(w, "\nMetrics")
	fmt.Fprintf(w, "  months %d (green %d), closed trades %d\n", m.TotalMonths, m.GreenMonths, m.ClosedTrades)
	fmt.Fprintf(w, "  drawdown %.2f%% (worst %.2f%%)\n", m.CurrentDrawdown, m.MaxDrawdown)
	fmt.Fprintf(w, "  win rate %.2f%%, avg R %.2f\n", m.WinRate, m.AvgRMultiple)
}
