package eventlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bee-swarm/swarm-sim/sim"
)

func sampleLog() *Log {
	l := New()
	l.Record(Entry{Time: 0, Actor: "human-po", Kind: IssueCreated, Entity: "ISSUE-001"})
	l.Record(Entry{Time: 3, Actor: "pm-01", Kind: AnalysisCompleted, Entity: "ISSUE-001", Duration: Hours(3), Resources: []string{"ai_tools"}})
	l.Record(Entry{Time: 3, Actor: "pm-01", Kind: ResourceReleased, Duration: Hours(3), Resources: []string{"ai_tools"}})
	l.Record(Entry{Time: 3, Actor: "pm-01", Kind: TaskCreated, Entity: "TASK-001"})
	l.Record(Entry{Time: 3, Actor: "pm-01", Kind: TaskCreated, Entity: "TASK-002"})
	l.Record(Entry{Time: 13, Actor: "be-01", Kind: DevelopmentCompleted, Entity: "TASK-001", Duration: Hours(10)})
	l.Record(Entry{Time: 15, Actor: "reviewer-1", Kind: ReviewChangesRequested, Entity: "PR-001", Duration: Hours(2)})
	l.Record(Entry{Time: 17, Actor: "reviewer-1", Kind: ReviewApproved, Entity: "PR-001", Duration: Hours(2)})
	l.Record(Entry{Time: 17, Actor: "be-01", Kind: TaskCompleted, Entity: "TASK-001"})
	return l
}

func TestLog_RecordStampsSequence(t *testing.T) {
	l := sampleLog()
	require.Equal(t, 9, l.Len())
	for i, e := range l.Entries() {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestWriteJSONL_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleLog().Entries()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 9)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "issue_created", first["kind"])
	_, hasDuration := first["duration"]
	assert.False(t, hasDuration, "untimed entries omit duration")

	var second Entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, sim.Time(3), second.DurationOf())
	assert.Equal(t, []string{"ai_tools"}, second.Resources)
}

func TestBusyTime_ExcludesResourceReleases(t *testing.T) {
	busy := BusyTime(sampleLog().Entries())
	assert.Equal(t, sim.Time(3), busy["pm-01"])
	assert.Equal(t, sim.Time(10), busy["be-01"])
	assert.Equal(t, sim.Time(4), busy["reviewer-1"])
	_, ok := busy["human-po"]
	assert.False(t, ok)
}

func TestSummarize_Reductions(t *testing.T) {
	m := Summarize(sampleLog().Entries(), Options{
		Horizon:    48,
		Roles:      []string{"pm-01", "be-01", "fe-01"},
		Capacities: map[string]int{"ai_tools": 2, "github_api": 3},
	})

	assert.Equal(t, 9, m.TotalEvents)
	assert.Equal(t, 2, m.TasksCreated)
	assert.Equal(t, 1, m.TasksCompleted)
	assert.True(t, m.CompletionRateDefined)
	assert.InDelta(t, 0.5, m.CompletionRate, 1e-12)
	assert.Equal(t, sim.Time(14), m.AverageCycleTime)
	assert.Equal(t, 1, m.CycleTimeSamples)
	assert.InDelta(t, 0.5, m.Throughput, 1e-12, "1 task over 2 days")
	assert.Equal(t, 1, m.ReworkCount)
	assert.Equal(t, 2, m.Reviews)

	assert.InDelta(t, 10.0/48, m.Utilization["be-01"], 1e-12)
	assert.Zero(t, m.Utilization["fe-01"], "idle roles are reported")
	assert.NotContains(t, m.Utilization, "reviewer-1")

	assert.InDelta(t, 3.0/(2*48), m.ResourceUtilization["ai_tools"], 1e-12)
	assert.Zero(t, m.ResourceUtilization["github_api"])
	assert.Equal(t, map[string]int{"pm-01": 0, "be-01": 1, "fe-01": 0}, m.TasksCompletedByRole)
	assert.InDelta(t, (3.0/48+10.0/48)/3, m.MeanUtilization(), 1e-12)
}

func TestSummarize_EmptyLogReturnsSentinels(t *testing.T) {
	// GIVEN a run that produced no tasks
	m := Summarize(nil, Options{Horizon: 100, Roles: []string{"pm-01"}})

	// THEN ratios are defined zeros flagged as undefined
	assert.Zero(t, m.TotalEvents)
	assert.False(t, m.CompletionRateDefined)
	assert.Zero(t, m.CompletionRate)
	assert.Zero(t, m.AverageCycleTime)
	assert.Zero(t, m.CycleTimeSamples)
	assert.Zero(t, m.Throughput)
	assert.Equal(t, 0.0, m.Utilization["pm-01"])
	assert.NotNil(t, m.IndefiniteWaits)
}

func TestSummarize_ZeroHorizon(t *testing.T) {
	m := Summarize(sampleLog().Entries(), Options{Roles: []string{"be-01"}, Capacities: map[string]int{"ai_tools": 1}})
	assert.Zero(t, m.Utilization["be-01"])
	assert.Zero(t, m.ResourceUtilization["ai_tools"])
	assert.Zero(t, m.Throughput)
}

func TestAverageCycleTime_IgnoresCompletionsWithoutCreation(t *testing.T) {
	entries := []Entry{
		{Time: 5, Kind: TaskCompleted, Entity: "TASK-404"},
		{Time: 1, Kind: TaskCreated, Entity: "TASK-001"},
		{Time: 7, Kind: TaskCompleted, Entity: "TASK-001"},
	}
	avg, n := AverageCycleTime(entries)
	assert.Equal(t, 1, n)
	assert.Equal(t, sim.Time(6), avg)
}

func TestKind_IsReview(t *testing.T) {
	assert.True(t, ReviewApproved.IsReview())
	assert.True(t, ReviewEscalated.IsReview())
	assert.False(t, PROpened.IsReview())
	assert.Len(t, Kinds(), 30)
}
