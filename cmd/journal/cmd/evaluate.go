package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/rules"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Re-evaluate every trade against the current settings",
	Long: `Evaluate runs the rule engine over the whole journal and stores the
evaluated and violated rule sets on each trade. Run it after editing the
settings document.

With --dry-run the results are printed but nothing is written.`,
	RunE: runEvaluate,
}

var (
	evalDryRun   bool
	evalViolated bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evalDryRun, "dry-run", false, "print results without updating the journal")
	evaluateCmd.Flags().BoolVar(&evalViolated, "violations", false, "only list trades that broke a rule")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	var (
		trades  []journal.Trade
		results map[string]rules.Result
	)
	if evalDryRun {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		eng, release, err := newEngine(ctx)
		if err != nil {
			return err
		}
		defer release()
		if trades, err = j.List(ctx); err != nil {
			return err
		}
		if results, err = eng.Evaluations(ctx, trades, s); err != nil {
			return err
		}
	} else {
		if trades, results, err = refresh(cmd, j); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tENTRY\tSYMBOL\tEVALUATED\tVIOLATED\tWARNINGS")
	broken := 0
	for _, t := range journal.Chronological(trades) {
		r := results[t.ID]
		if len(r.Violated) > 0 {
			broken++
		} else if evalViolated {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ID, t.EntryTime.UTC().Format("2006-01-02 15:04"), t.Symbol,
			len(r.Evaluated), joinIDs(r.Violated), joinIDs(r.Warnings))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	log.Info("journal evaluated",
		zap.Int("trades", len(trades)),
		zap.Int("with_violations", broken),
		zap.Bool("dry_run", evalDryRun),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d trades broke at least one rule\n", broken, len(trades))
	return nil
}

func joinIDs(ids []rules.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return strings.Join(out, ",")
}
