package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/distribution"
	"github.com/bee-swarm/swarm-sim/sim/eventlog"
)

// constantConfig is a one-issue, one-task team with fixed durations, so event
// times can be asserted exactly.
func constantConfig() *SimulationConfig {
	c := distribution.Constant
	return &SimulationConfig{
		Horizon: 200,
		Seed:    7,
		Resources: map[string]int{
			PoolAITools:       1,
			PoolGitHubAPI:     1,
			PoolCodeReviewers: 1,
			PoolDeployment:    1,
		},
		Roles: []RoleSpec{
			{ID: "pm-01", Name: "Planner", Kind: KindPlanner},
			{ID: "be-01", Name: "Backend", Kind: KindBuilder},
			{ID: "de-01", Name: "DevOps", Kind: KindReleaser},
		},
		Durations: map[string]distribution.DistSpec{
			StepIssueInterarrival: c(50),
			StepAnalysis:          c(2),
			StepComment:           c(0),
			StepDocReview:         c(0.5),
			StepAnswerWait:        c(1),
			StepAIAssist:          c(1),
			StepDevelopment:       c(4),
			StepRework:            c(1),
			StepOpenPR:            c(0),
			StepReview:            c(1),
			StepUAT:               c(1),
			StepDeployPrep:        c(1),
			StepDeployExecute:     c(1),
			StepDeployVerify:      c(1),
			StepDefaultTask:       c(1),
			StepIdlePoll:          c(2),
			StepReport:            c(0.5),
		},
		Review: ReviewConfig{PassProbability: 1},
		Issues: IssuesConfig{
			MaxIssues:     1,
			Titles:        []string{"Registration"},
			TaskTemplates: []TaskTemplate{{Title: "API", Role: "be-01"}},
		},
	}
}

func mustRun(t *testing.T, cfg *SimulationConfig) *Result {
	t.Helper()
	res, err := Run(cfg)
	require.NoError(t, err)
	return res
}

// ofKind filters entries by kind.
func ofKind(entries []eventlog.Entry, kind eventlog.Kind) []eventlog.Entry {
	var out []eventlog.Entry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// stamp is an (actor, time) pair for compact assertions.
type stamp struct {
	actor string
	at    sim.Time
}

func stamps(entries []eventlog.Entry) []stamp {
	out := make([]stamp, len(entries))
	for i, e := range entries {
		out[i] = stamp{actor: e.Actor, at: e.Time}
	}
	return out
}
