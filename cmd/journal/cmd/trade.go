package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/rustyeddy/tradejournal/rules"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Record, list, import and export journal trades",
	Long: `Manage the trades in the journal. Every change re-evaluates the whole
journal, since adding or removing a trade changes the history later
trades are judged against.

Examples:
  journal trade add --symbol EURUSD --direction long --entry 2025-03-04T09:00:00Z --size 0.5
  journal trade add --symbol EURUSD --direction long --entry 2025-03-04T09:00:00Z \
      --close 2025-03-04T11:00:00Z --status closed --pnl -42.5 --risk 1
  journal trade list --from 2025-03-01 --format table
  journal trade import trades.csv`,
}

var tradeAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a trade and show how it was judged",
	RunE:  runTradeAdd,
}

var tradeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades by entry time",
	RunE:  runTradeList,
}

var tradeShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeShow,
}

var tradeImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Import trades from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeImport,
}

var tradeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every trade as CSV",
	RunE:  runTradeExport,
}

var tradeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runTradeDelete,
}

type tradeFlags struct {
	id        string
	symbol    string
	direction string
	entry     string
	close     string
	size      float64
	status    string
	pnl       string
	r         string
	risk      string
	notes     string
}

var (
	addFlags tradeFlags

	listFrom   string
	listTo     string
	listFormat string

	exportOutput string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeAddCmd, tradeListCmd, tradeShowCmd, tradeImportCmd, tradeExportCmd, tradeDeleteCmd)

	f := tradeAddCmd.Flags()
	f.StringVar(&addFlags.id, "id", "", "trade ID (default: a new ULID at the entry time)")
	f.StringVar(&addFlags.symbol, "symbol", "", "instrument, e.g. EURUSD")
	f.StringVar(&addFlags.direction, "direction", "long", "long|short")
	f.StringVar(&addFlags.entry, "entry", "", "entry time (RFC3339 or 2006-01-02 15:04)")
	f.StringVar(&addFlags.close, "close", "", "close time (RFC3339 or 2006-01-02 15:04)")
	f.Float64Var(&addFlags.size, "size", 0, "position size in lots")
	f.StringVar(&addFlags.status, "status", "", "open|closed (default: closed when --close is given)")
	f.StringVar(&addFlags.pnl, "pnl", "", "realized profit or loss in account currency")
	f.StringVar(&addFlags.r, "r", "", "result as a multiple of initial risk")
	f.StringVar(&addFlags.risk, "risk", "", "risk as percent of the account")
	f.StringVar(&addFlags.notes, "notes", "", "free text")
	_ = tradeAddCmd.MarkFlagRequired("symbol")
	_ = tradeAddCmd.MarkFlagRequired("entry")

	tradeListCmd.Flags().StringVar(&listFrom, "from", "", "first entry day or time (inclusive)")
	tradeListCmd.Flags().StringVar(&listTo, "to", "", "last entry day or time (a bare day includes the whole day)")
	tradeListCmd.Flags().StringVar(&listFormat, "format", "table", "table|org|csv")

	tradeExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
}

func (f tradeFlags) trade() (journal.Trade, error) {
	entry, err := parseWhen(f.entry)
	if err != nil {
		return journal.Trade{}, fmt.Errorf("--entry: %w", err)
	}
	t := journal.Trade{
		ID:        strings.TrimSpace(f.id),
		Symbol:    strings.ToUpper(strings.TrimSpace(f.symbol)),
		Direction: journal.Direction(strings.ToLower(f.direction)),
		EntryTime: entry,
		Size:      f.size,
		Status:    journal.Status(strings.ToLower(f.status)),
		Notes:     f.notes,
	}
	if f.close != "" {
		ct, err := parseWhen(f.close)
		if err != nil {
			return journal.Trade{}, fmt.Errorf("--close: %w", err)
		}
		t.CloseTime = &ct
		if t.Status == "" {
			t.Status = journal.StatusClosed
		}
	}
	if t.Status == "" {
		t.Status = journal.StatusOpen
	}
	if f.pnl != "" {
		d, err := decimal.NewFromString(f.pnl)
		if err != nil {
			return journal.Trade{}, fmt.Errorf("--pnl: %w", err)
		}
		t.PnL = &d
	}
	if t.RMultiple, err = optFloat("--r", f.r); err != nil {
		return journal.Trade{}, err
	}
	if t.RiskPercent, err = optFloat("--risk", f.risk); err != nil {
		return journal.Trade{}, err
	}
	if t.ID == "" {
		t.ID = id.NewAt(t.EntryTime)
	}
	return t, t.Validate()
}

func runTradeAdd(cmd *cobra.Command, args []string) error {
	t, err := addFlags.trade()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.Save(ctx, t); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	all, results, err := refresh(cmd, j)
	if err != nil {
		return err
	}
	for _, stored := range all {
		if stored.ID == t.ID {
			t = stored
			break
		}
	}

	log.Info("trade saved", zap.String("trade_id", t.ID), zap.Strings("violated", t.ViolatedRules))
	out := cmd.OutOrStdout()
	fmt.Fprint(out, journal.FormatTradeOrg(t))
	printDetails(out, results[t.ID])
	return nil
}

func runTradeList(cmd *cobra.Command, args []string) error {
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	var trades []journal.Trade
	if listFrom == "" && listTo == "" {
		trades, err = j.List(cmd.Context())
	} else {
		from, to, perr := listRange(listFrom, listTo)
		if perr != nil {
			return perr
		}
		trades, err = j.ListEnteredBetween(cmd.Context(), from, to)
	}
	if err != nil {
		return err
	}
	return writeTrades(cmd.OutOrStdout(), trades, listFormat)
}

func runTradeShow(cmd *cobra.Command, args []string) error {
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := j.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), journal.FormatTradeOrg(t))
	return nil
}

func runTradeImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	trades, err := journal.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	for _, t := range trades {
		if err := j.Save(cmd.Context(), t); err != nil {
			return fmt.Errorf("save %s: %w", t.ID, err)
		}
	}
	all, _, err := refresh(cmd, j)
	if err != nil {
		return err
	}
	log.Info("trades imported", zap.String("file", args[0]), zap.Int("count", len(trades)))
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d trades (%d in journal)\n", len(trades), len(all))
	return nil
}

func runTradeExport(cmd *cobra.Command, args []string) error {
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.List(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return journal.WriteCSV(w, trades)
}

func runTradeDelete(cmd *cobra.Command, args []string) error {
	j, err := openStore()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	if _, _, err := refresh(cmd, j); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

// refresh re-evaluates the whole store under the current settings.
func refresh(cmd *cobra.Command, store journal.Store) ([]journal.Trade, map[string]rules.Result, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	eng, release, err := newEngine(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	defer release()
	return eng.Refresh(cmd.Context(), store, s)
}

func writeTrades(w io.Writer, trades []journal.Trade, format string) error {
	switch format {
	case "csv":
		return journal.WriteCSV(w, trades)
	case "org":
		_, err := io.WriteString(w, journal.FormatTradesOrg(trades))
		return err
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tENTRY\tSYMBOL\tDIR\tSIZE\tSTATUS\tPNL\tVIOLATED")
		for _, t := range trades {
			pnl := "-"
			if t.PnL != nil {
				pnl = t.PnL.StringFixed(2)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%s\t%s\t%s\n",
				t.ID, t.EntryTime.UTC().Format("2006-01-02 15:04"), t.Symbol, t.Direction,
				t.Size, t.Status, pnl, strings.Join(t.ViolatedRules, ","))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want table, org or csv)", format)
	}
}

func printDetails(w io.Writer, r rules.Result) {
	for _, d := range r.Details {
		fmt.Fprintf(w, "  ! %s: %s\n", d.Code, d.Msg)
	}
	if r.SessionClosed {
		fmt.Fprintln(w, "  ! session closed: stop trading for today")
	}
}

var whenLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseWhen accepts RFC3339 or a bare UTC date or minute.
func parseWhen(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time")
	}
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q", v)
}

// listRange turns the --from/--to flags into a half-open range. A bare
// date for --to covers that whole day.
func listRange(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	var err error
	if from != "" {
		if start, err = parseWhen(from); err != nil {
			return start, end, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if end, err = parseWhen(to); err != nil {
			return start, end, fmt.Errorf("--to: %w", err)
		}
		if _, derr := time.Parse("2006-01-02", strings.TrimSpace(to)); derr == nil {
			end = end.AddDate(0, 0, 1)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return start, end, nil
}

func optFloat(name, v string) (*float64, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &x, nil
}
