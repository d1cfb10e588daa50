package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/mentora/treasury-service/internal/app"
	"github.com/mentora/treasury-service/internal/forecast"
	"github.com/mentora/treasury-service/internal/settlement"
)

func newForecastCommand(rt *runtime) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Monthly cash projection per currency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			projection, err := rt.client().Forecast(ctx, months)
			if err != nil {
				return err
			}
			if rt.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), projection)
			}
			renderForecast(cmd.OutOrStdout(), rt.printer(), projection)
			return nil
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", forecast.DefaultMonths, "Projection horizon (3, 6 or 12)")
	return cmd
}

func renderForecast(w io.Writer, p *message.Printer, projection *forecast.Projection) {
	fmt.Fprintln(w, RenderTitle(fmt.Sprintf("CASH FORECAST  %d months", projection.Months)))
	if len(projection.Projection) == 0 {
		fmt.Fprintln(w, RenderMuted("  No accounts or expected flows."))
		return
	}

	rows := make([][]string, 0, len(projection.Projection))
	backlog := false
	for _, row := range projection.Projection {
		month := row.Month
		if row.IsBacklog {
			month += "*"
			backlog = true
		}
		rows = append(rows, []string{
			month,
			row.Currency,
			FormatMoney(p, row.OpeningBalance, ""),
			FormatMoney(p, row.ExpectedRevenue, ""),
			FormatMoney(p, row.ExpectedExpenses, ""),
			FormatMoney(p, row.NetFlow, ""),
			FormatMoney(p, row.ClosingBalance, ""),
		})
	}
	fmt.Fprint(w, RenderTable(Table{
		Headers: []string{"Month", "Cur", "Opening", "Revenue", "Expenses", "Net", "Closing"},
		Rows:    rows,
	}))
	if backlog {
		fmt.Fprintln(w, RenderMuted("  * overdue items from past months"))
	}
}

func newBFRCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "bfr",
		Short: "Working-capital report: student balances and upcoming payments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			report, err := rt.client().BFR(ctx)
			if err != nil {
				return err
			}
			if rt.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			renderBFR(cmd.OutOrStdout(), rt.printer(), report)
			return nil
		},
	}
}

func renderBFR(w io.Writer, p *message.Printer, report *forecast.BFRReport) {
	fmt.Fprintln(w, RenderTitle("WORKING CAPITAL"))
	if len(report.Students) == 0 {
		fmt.Fprintln(w, RenderMuted("  No receivables."))
		return
	}

	students := make([][]string, 0, len(report.Students))
	for _, s := range report.Students {
		overdue := ""
		if s.IsOverdue {
			overdue = FormatMoney(p, s.OverdueAmount, "")
		}
		students = append(students, []string{
			s.StudentName,
			s.Currency,
			FormatMoney(p, s.TotalQuote, ""),
			FormatMoney(p, s.TotalPaid, ""),
			FormatMoney(p, s.TotalRemaining, ""),
			overdue,
		})
	}
	fmt.Fprint(w, RenderTable(Table{
		Title:   "Students",
		Headers: []string{"Student", "Cur", "Quoted", "Paid", "Remaining", "Overdue"},
		Rows:    students,
	}))

	if len(report.UpcomingPayments) > 0 {
		upcoming := make([][]string, 0, len(report.UpcomingPayments))
		for _, u := range report.UpcomingPayments {
			upcoming = append(upcoming, []string{
				u.StudentName,
				u.DueDate.Format("2006-01-02"),
				FormatDueIn(u.DaysUntilDue),
				FormatMoney(p, u.Remaining, u.Currency),
			})
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, RenderTable(Table{
			Title:   "Due in the next " + strconv.Itoa(forecast.UpcomingWindowDays) + " days",
			Headers: []string{"Student", "Due", "When", "Remaining"},
			Rows:    upcoming,
		}))
	}

	totals := make([][]string, 0, len(report.TotalsByCurrency))
	for _, cur := range sortedKeys(report.TotalsByCurrency) {
		t := report.TotalsByCurrency[cur]
		totals = append(totals, []string{
			cur,
			FormatMoney(p, t.TotalRemaining, ""),
			FormatMoney(p, t.OverdueAmount, ""),
		})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, RenderTable(Table{
		Title:   "Totals",
		Headers: []string{"Cur", "Receivable", "Overdue"},
		Rows:    totals,
	}))
}

func newPositionsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Founder positions and settle-up suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			rebalancing, err := rt.client().Positions(ctx)
			if err != nil {
				return err
			}
			if rt.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), rebalancing)
			}
			renderPositions(cmd.OutOrStdout(), rt.printer(), rebalancing)
			return nil
		},
	}
}

func renderPositions(w io.Writer, p *message.Printer, r *settlement.Rebalancing) {
	fmt.Fprintln(w, RenderTitle("FOUNDER POSITIONS"))
	if len(r.Balances) == 0 {
		fmt.Fprintln(w, RenderMuted("  No founder movements."))
		return
	}

	rows := make([][]string, 0, len(r.Balances))
	for _, b := range r.Balances {
		rows = append(rows, []string{
			b.AdminName,
			b.Currency,
			FormatMoney(p, b.Advanced, ""),
			FormatMoney(p, b.Received, ""),
			FormatMoney(p, b.Net, ""),
			FormatMoney(p, b.Deviation, ""),
		})
	}
	fmt.Fprint(w, RenderTable(Table{
		Headers: []string{"Founder", "Cur", "Advanced", "Received", "Net", "Deviation"},
		Rows:    rows,
	}))

	fmt.Fprintln(w)
	if len(r.Suggestions) == 0 {
		fmt.Fprintln(w, RenderMuted("  Founders are balanced."))
		return
	}
	fmt.Fprintln(w, "  Suggested transfers")
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "  %s pays %s %s\n", s.FromAdminName, s.ToAdminName, FormatMoney(p, s.Amount, s.Currency))
	}
}

func newAlertsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Trigger alert runs on the treasury service",
	}
	cmd.AddCommand(
		newAlertRunCommand(rt, "overdue", "Publish overdue student alerts", func(c Client) alertCall { return c.RunOverdueAlerts }),
		newAlertRunCommand(rt, "upcoming", "Publish the upcoming payments digest", func(c Client) alertCall { return c.RunUpcomingDigest }),
	)
	return cmd
}

type alertCall func(ctx context.Context) (*app.AlertRunResult, error)

func newAlertRunCommand(rt *runtime, use, short string, pick func(Client) alertCall) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			result, err := pick(rt.client())(ctx)
			if err != nil {
				return err
			}
			if rt.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s run as of %s: %d evaluated, %d published, %d failed\n",
				use, result.AsOf, result.Evaluated, result.Published, result.Failed)
			return nil
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
