package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bee-swarm/swarm-sim/sim/eventlog"
	"github.com/bee-swarm/swarm-sim/sim/workflow"
)

func runDefaults(t *testing.T) *workflow.Result {
	t.Helper()
	res, err := workflow.Run(workflow.DefaultConfig())
	require.NoError(t, err)
	return res
}

func TestPrintResult_Table(t *testing.T) {
	// GIVEN a finished reference run
	res := runDefaults(t)

	// WHEN it is printed as tables
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, formatTable))

	// THEN the header, every role and every pool appear
	out := buf.String()
	assert.Contains(t, out, "Simulation Metrics")
	assert.Contains(t, out, res.RunID)
	for _, id := range []string{"pm-01", "be-01", "fe-01", "de-01"} {
		assert.Contains(t, out, id)
	}
	for _, pool := range []string{"ai_tools", "github_api", "code_reviewers", "deployment_env"} {
		assert.Contains(t, out, pool)
	}
}

func TestPrintResult_JSON(t *testing.T) {
	res := runDefaults(t)

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, formatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.RunID, decoded["run_id"])
	metrics, ok := decoded["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, metrics, "utilization")
	assert.Contains(t, metrics, "indefinite_waits")
	assert.NotContains(t, decoded, "Entries", "the event log is written separately")
}

func TestPrintResult_UnknownFormat(t *testing.T) {
	err := printResult(&bytes.Buffer{}, runDefaults(t), "xml")
	assert.Error(t, err)
}

func TestPrintComparison(t *testing.T) {
	rows := []workflow.Comparison{
		{Name: "baseline", TasksCreated: 3, TasksCompleted: 2, CompletionRate: 2.0 / 3, CompletionRateDefined: true},
		{Name: "idle"},
	}

	var buf bytes.Buffer
	require.NoError(t, printComparison(&buf, rows, formatTable))
	out := buf.String()
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "n/a", "undefined ratios are not printed as zero")

	buf.Reset()
	require.NoError(t, printComparison(&buf, rows, formatJSON))
	var decoded []workflow.Comparison
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, rows, decoded)
}

func TestWriteEvents_OneLinePerEntry(t *testing.T) {
	res := runDefaults(t)
	path := filepath.Join(t.TempDir(), "events.jsonl")

	require.NoError(t, writeEvents(path, res.Entries))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, len(res.Entries), lines)
}

func TestWriteDefaults_RoundTrips(t *testing.T) {
	// GIVEN the YAML printed by the defaults command
	var buf bytes.Buffer
	require.NoError(t, writeDefaults(&buf))

	// WHEN it is loaded back as a scenario
	cfg, err := workflow.ParseConfig(buf.Bytes())
	require.NoError(t, err)

	// THEN it is the built-in configuration
	assert.Equal(t, workflow.DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadScenario(t *testing.T) {
	cfg, err := loadScenario("")
	require.NoError(t, err)
	assert.Equal(t, workflow.DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "short.yaml")
	require.NoError(t, os.WriteFile(path, []byte("horizon: 12\n"), 0o644))
	cfg, err = loadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Horizon)
}

func TestScenarioName(t *testing.T) {
	assert.Equal(t, "two-builders", scenarioName("scenarios/two-builders.yaml"))
	assert.Equal(t, "plain", scenarioName("plain"))
}

func TestRenderEventCounts_LifecycleOrderSkipsZeros(t *testing.T) {
	// GIVEN counts whose map order says nothing about the lifecycle
	m := &eventlog.Metrics{
		TotalEvents: 6,
		EventCounts: map[eventlog.Kind]int{
			eventlog.TaskCompleted: 1,
			eventlog.IssueCreated:  2,
			eventlog.PROpened:      3,
		},
	}

	// WHEN the events table is rendered
	var buf bytes.Buffer
	renderEventCounts(&buf, m)
	out := buf.String()

	// THEN rows follow eventlog.Kinds and kinds that never occurred are left out
	issue := strings.Index(out, string(eventlog.IssueCreated))
	task := strings.Index(out, string(eventlog.TaskCompleted))
	pr := strings.Index(out, string(eventlog.PROpened))
	require.True(t, issue >= 0 && task >= 0 && pr >= 0, out)
	assert.Less(t, issue, task)
	assert.Less(t, task, pr)
	assert.NotContains(t, out, string(eventlog.DailyReport))
}
