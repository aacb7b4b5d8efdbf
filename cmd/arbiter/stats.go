package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/stats"

	"github.com/spf13/cobra"
)

var statsFlags struct {
	tenant      string
	environment string
	from        string
	to          string
	format      string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report usage statistics",
}

var statsOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize traces, model calls and agent calls per use case",
	Long: `Count the traces started in a time window with their model and agent
calls, overall and per use case. The window defaults to the configured
stats.default_window ending now.

Examples:
  arbiter stats overview --tenant acme
  arbiter stats overview --tenant acme --environment prd --from 2026-10-01T00:00:00Z
  arbiter stats overview --tenant acme --format csv > usage.csv`,
	Args: cobra.NoArgs,
	RunE: runStatsOverview,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsOverviewCmd)

	f := statsOverviewCmd.Flags()
	f.StringVarP(&statsFlags.tenant, "tenant", "t", "", "tenant ID")
	f.StringVar(&statsFlags.environment, "environment", "", "restrict to one environment")
	f.StringVar(&statsFlags.from, "from", "", "window start (RFC 3339)")
	f.StringVar(&statsFlags.to, "to", "", "window end (RFC 3339)")
	f.StringVarP(&statsFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runStatsOverview(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(statsFlags.format)
	if err != nil {
		return err
	}

	q := stats.Query{TenantID: statsFlags.tenant, Environment: statsFlags.environment}
	verr := &apperrors.ValidationError{}
	q.From = parseFlagTime(verr, "from", statsFlags.from)
	q.To = parseFlagTime(verr, "to", statsFlags.to)
	if err := verr.OrNil(); err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(commandContext(cmd))

	overview, err := a.stats.Overview(commandContext(cmd), q)
	if err != nil {
		return cli.NewCommandError("stats overview", err)
	}
	return writeOutput(cmd.OutOrStdout(), format, overviewReport(overview))
}

func parseFlagTime(verr *apperrors.ValidationError, field, value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		verr.Add(field, "must be an RFC 3339 timestamp")
		return nil
	}
	return &t
}

// overviewReport renders a stats overview as text or one CSV row per use
// case.
type overviewReport stats.Overview

func (r overviewReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Tenant %s", cli.Highlight(r.TenantID))
	if r.Environment != "" {
		fmt.Fprintf(w, " (%s)", r.Environment)
	}
	fmt.Fprintf(w, ", %s to %s\n\n", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	fmt.Fprintf(w, "Traces:      %d\n", r.Summary.TotalTraces)
	fmt.Fprintf(w, "Model calls: %d\n", r.Summary.TotalModelCalls)
	fmt.Fprintf(w, "Agent calls: %d\n", r.Summary.TotalAgentCalls)

	if len(r.ByUseCase) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USE CASE\tTRACES\tMODEL CALLS\tAGENT CALLS\tLAST TRACE")
	for _, u := range r.ByUseCase {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", u.UseCaseID, u.Traces, u.ModelCalls, u.AgentCalls, u.LastTraceAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (r overviewReport) Header() []string {
	return []string{"use_case_id", "traces", "model_calls", "agent_calls", "last_trace_at"}
}

func (r overviewReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.ByUseCase))
	for _, u := range r.ByUseCase {
		rows = append(rows, []string{
			u.UseCaseID,
			strconv.FormatInt(u.Traces, 10),
			strconv.FormatInt(u.ModelCalls, 10),
			strconv.FormatInt(u.AgentCalls, 10),
			u.LastTraceAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return rows
}
