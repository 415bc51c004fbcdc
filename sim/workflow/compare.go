package workflow

import (
	"fmt"

	"github.com/bee-swarm/swarm-sim/sim"
)

// Scenario is a named configuration to compare.
type Scenario struct {
	Name   string
	Config *SimulationConfig
}

// Comparison is one row of a scenario comparison.
type Comparison struct {
	Name                  string   `json:"name"`
	RunID                 string   `json:"run_id"`
	TasksCreated          int      `json:"tasks_created"`
	TasksCompleted        int      `json:"tasks_completed"`
	Throughput            float64  `json:"throughput_per_day"`
	AverageCycleTime      sim.Time `json:"average_cycle_time"`
	CycleTimeSamples      int      `json:"cycle_time_samples"`
	CompletionRate        float64  `json:"completion_rate"`
	CompletionRateDefined bool     `json:"completion_rate_defined"`
	MeanUtilization       float64  `json:"mean_utilization"`
	ReworkCount           int      `json:"rework_count"`
	IndefiniteWaits       int      `json:"indefinite_waits"`
}

// Compare runs every scenario in order and returns one row each. The first
// failing scenario aborts the comparison.
func Compare(scenarios []Scenario) ([]Comparison, error) {
	rows := make([]Comparison, 0, len(scenarios))
	for _, sc := range scenarios {
		res, err := Run(sc.Config)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}
		m := res.Metrics
		rows = append(rows, Comparison{
			Name:                  sc.Name,
			RunID:                 res.RunID,
			TasksCreated:          m.TasksCreated,
			TasksCompleted:        m.TasksCompleted,
			Throughput:            m.Throughput,
			AverageCycleTime:      m.AverageCycleTime,
			CycleTimeSamples:      m.CycleTimeSamples,
			CompletionRate:        m.CompletionRate,
			CompletionRateDefined: m.CompletionRateDefined,
			MeanUtilization:       m.MeanUtilization(),
			ReworkCount:           m.ReworkCount,
			IndefiniteWaits:       len(m.IndefiniteWaits),
		})
	}
	return rows, nil
}
