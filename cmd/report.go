package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bee-swarm/swarm-sim/sim/eventlog"
	"github.com/bee-swarm/swarm-sim/sim/workflow"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// printResult writes the end-of-run metrics in the requested format.
func printResult(w io.Writer, res *workflow.Result, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, res)
	case formatTable:
		renderResult(w, res)
		return nil
	default:
		return fmt.Errorf("unknown format %q (table, json)", format)
	}
}

// printComparison writes one row per scenario in the requested format.
func printComparison(w io.Writer, rows []workflow.Comparison, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, rows)
	case formatTable:
		renderComparison(w, rows)
		return nil
	default:
		return fmt.Errorf("unknown format %q (table, json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	return tw
}

func hours(v float64) string   { return fmt.Sprintf("%.2fh", v) }
func percent(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

func renderResult(w io.Writer, res *workflow.Result) {
	m := res.Metrics
	fmt.Fprintf(w, "=== Simulation Metrics (run %s, seed %d) ===\n", res.RunID, res.Seed)

	summary := newTable(w, "Summary")
	summary.AppendHeader(table.Row{"Metric", "Value"})
	rate := "n/a"
	if m.CompletionRateDefined {
		rate = percent(m.CompletionRate)
	}
	cycle := "n/a"
	if m.CycleTimeSamples > 0 {
		cycle = fmt.Sprintf("%s (%d tasks)", hours(float64(m.AverageCycleTime)), m.CycleTimeSamples)
	}
	summary.AppendRows([]table.Row{
		{"horizon", hours(float64(m.Horizon))},
		{"events", m.TotalEvents},
		{"issues created / closed", fmt.Sprintf("%d / %d", m.IssuesCreated, m.IssuesClosed)},
		{"tasks created / completed", fmt.Sprintf("%d / %d", m.TasksCreated, m.TasksCompleted)},
		{"completion rate", rate},
		{"average cycle time", cycle},
		{"throughput", fmt.Sprintf("%.2f tasks/day", m.Throughput)},
		{"PRs opened / merged / deployed", fmt.Sprintf("%d / %d / %d", m.PRsOpened, m.PRsMerged, m.PRsDeployed)},
		{"reviews / rework cycles", fmt.Sprintf("%d / %d", m.Reviews, m.ReworkCount)},
		{"comments", m.Comments},
		{"milestones completed", m.MilestonesCompleted},
		{"mean role utilization", percent(m.MeanUtilization())},
	})
	summary.Render()

	roles := newTable(w, "Roles")
	roles.AppendHeader(table.Row{"Role", "Busy", "Utilization", "Tasks completed"})
	for _, id := range actors(m) {
		util := "-"
		if u, ok := m.Utilization[id]; ok {
			util = percent(u)
		}
		roles.AppendRow(table.Row{id, hours(float64(m.BusyTime[id])), util, m.TasksCompletedByRole[id]})
	}
	roles.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	roles.Render()

	pools := newTable(w, "Resources")
	pools.AppendHeader(table.Row{"Pool", "Capacity", "Grants", "Held", "Waited", "Max queue", "Utilization"})
	for _, p := range res.Pools {
		pools.AppendRow(table.Row{
			p.Name, p.Capacity, p.Grants, hours(float64(p.HeldTime)), hours(float64(p.WaitTime)),
			p.MaxQueueLen, percent(m.ResourceUtilization[p.Name]),
		})
	}
	pools.Render()

	renderEventCounts(w, m)

	if len(m.IndefiniteWaits) > 0 {
		waits := newTable(w, "Indefinite waits")
		waits.AppendHeader(table.Row{"Process", "State", "Since"})
		for _, iw := range m.IndefiniteWaits {
			waits.AppendRow(table.Row{iw.Process, iw.State, hours(float64(iw.Since))})
		}
		waits.Render()
	}
}

// renderEventCounts prints one row per kind that occurred, in lifecycle order.
func renderEventCounts(w io.Writer, m *eventlog.Metrics) {
	counts := newTable(w, "Events")
	counts.AppendHeader(table.Row{"Kind", "Count"})
	for _, k := range eventlog.Kinds() {
		if n := m.EventCounts[k]; n > 0 {
			counts.AppendRow(table.Row{string(k), n})
		}
	}
	counts.AppendFooter(table.Row{"total", m.TotalEvents})
	counts.Render()
}

// actors lists every process with busy time or a utilization entry, sorted.
func actors(m *eventlog.Metrics) []string {
	seen := make(map[string]bool)
	var ids []string
	for id := range m.Utilization {
		seen[id] = true
		ids = append(ids, id)
	}
	for id := range m.BusyTime {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func renderComparison(w io.Writer, rows []workflow.Comparison) {
	tw := newTable(w, "Scenario comparison")
	tw.AppendHeader(table.Row{"Scenario", "Tasks", "Completed", "Rate", "Cycle time", "Throughput/day", "Utilization", "Rework", "Waits"})
	for _, r := range rows {
		rate := "n/a"
		if r.CompletionRateDefined {
			rate = percent(r.CompletionRate)
		}
		cycle := "n/a"
		if r.CycleTimeSamples > 0 {
			cycle = hours(float64(r.AverageCycleTime))
		}
		tw.AppendRow(table.Row{
			r.Name, r.TasksCreated, r.TasksCompleted, rate, cycle,
			fmt.Sprintf("%.2f", r.Throughput), percent(r.MeanUtilization), r.ReworkCount, r.IndefiniteWaits,
		})
	}
	tw.Render()
}
