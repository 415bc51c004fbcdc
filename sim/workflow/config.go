package workflow

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bee-swarm/swarm-sim/sim"
	"github.com/bee-swarm/swarm-sim/sim/distribution"
)

// RoleKind selects the duties a role process performs.
type RoleKind string

const (
	// KindPlanner analyzes issues into tasks and runs UAT on reviewed PRs.
	KindPlanner RoleKind = "planner"
	// KindBuilder implements tasks and opens PRs.
	KindBuilder RoleKind = "builder"
	// KindReleaser deploys merged PRs and can also implement tasks.
	KindReleaser RoleKind = "releaser"
)

// Pipeline stages, in the only order they may appear.
const (
	StageReview = "review"
	StageUAT    = "uat"
	StageDeploy = "deploy"
)

var stageOrder = map[string]int{StageReview: 0, StageUAT: 1, StageDeploy: 2}

// Pool names.
const (
	PoolAITools       = "ai_tools"
	PoolGitHubAPI     = "github_api"
	PoolCodeReviewers = "code_reviewers"
	PoolDeployment    = "deployment_env"
)

var knownPools = map[string]bool{
	PoolAITools: true, PoolGitHubAPI: true, PoolCodeReviewers: true, PoolDeployment: true,
}

// Duration step names.
const (
	StepIssueInterarrival = "issue_interarrival"
	StepAnalysis          = "analysis"
	StepComment           = "comment"
	StepDocReview         = "doc_review"
	StepAnswerWait        = "answer_wait"
	StepAIAssist          = "ai_assist"
	StepDevelopment       = "development"
	StepRework            = "rework"
	StepOpenPR            = "open_pr"
	StepReview            = "review"
	StepUAT               = "uat"
	StepDeployPrep        = "deploy_prep"
	StepDeployExecute     = "deploy_execute"
	StepDeployVerify      = "deploy_verify"
	StepDefaultTask       = "default_task"
	StepIdlePoll          = "idle_poll"
	StepReport            = "report"
)

var knownSteps = map[string]bool{
	StepIssueInterarrival: true, StepAnalysis: true, StepComment: true, StepDocReview: true,
	StepAnswerWait: true, StepAIAssist: true, StepDevelopment: true, StepRework: true,
	StepOpenPR: true, StepReview: true, StepUAT: true, StepDeployPrep: true,
	StepDeployExecute: true, StepDeployVerify: true, StepDefaultTask: true, StepIdlePoll: true,
	StepReport: true,
}

// Process ids reserved for the auxiliary processes.
const (
	RequesterID    = "human-po"
	ReporterID     = "reporter"
	reviewerPrefix = "reviewer-"
)

// RoleSpec defines one team member.
type RoleSpec struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Kind                RoleKind `yaml:"kind"`
	DefaultTasks        []string `yaml:"default_tasks,omitempty"`
	ConsultsDocs        bool     `yaml:"consults_docs,omitempty"`
	QuestionProbability float64  `yaml:"question_probability,omitempty"`
	Priority            int      `yaml:"priority,omitempty"`
}

// ReviewConfig controls review outcomes.
type ReviewConfig struct {
	PassProbability float64 `yaml:"pass_probability"`
	// PassProbabilitySchedule overrides PassProbability for the n-th review of
	// a PR (0-based). Reviews past the end use PassProbability.
	PassProbabilitySchedule []float64 `yaml:"pass_probability_schedule,omitempty"`
	// MaxReworkCycles forces approval after this many rejections of one PR. 0 is unbounded.
	MaxReworkCycles int `yaml:"max_rework_cycles"`
}

// TaskTemplate is one task the planner derives from every issue.
type TaskTemplate struct {
	Title string `yaml:"title"`
	Role  string `yaml:"role"`
}

// IssuesConfig controls the requester.
type IssuesConfig struct {
	MaxIssues     int            `yaml:"max_issues"`
	Titles        []string       `yaml:"titles,omitempty"`
	TaskTemplates []TaskTemplate `yaml:"task_templates"`
}

// SimulationConfig is everything a run needs. A run is reproducible from it.
type SimulationConfig struct {
	Horizon   float64                          `yaml:"horizon"`
	Seed      int64                            `yaml:"seed"`
	Resources map[string]int                   `yaml:"resources"`
	Roles     []RoleSpec                       `yaml:"roles"`
	Durations map[string]distribution.DistSpec `yaml:"durations"`
	// PipelineStages is the ordered subset of review, uat, deploy a PR goes
	// through. Nil means all three; an empty list means none.
	PipelineStages []string     `yaml:"pipeline_stages"`
	Review         ReviewConfig `yaml:"review"`
	Issues         IssuesConfig `yaml:"issues"`
	ReportInterval float64      `yaml:"report_interval"`
	MilestoneSize  int          `yaml:"milestone_size"`
}

// DefaultConfig returns the reference team: one planner, two builders and one
// releaser sharing the four pools.
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Horizon: 100,
		Seed:    42,
		Resources: map[string]int{
			PoolGitHubAPI:     3,
			PoolAITools:       2,
			PoolDeployment:    1,
			PoolCodeReviewers: 2,
		},
		Roles: []RoleSpec{
			{ID: "pm-01", Name: "Product Manager", Kind: KindPlanner,
				DefaultTasks: []string{"trending news crawl", "user feedback analysis", "competitor watch"}},
			{ID: "be-01", Name: "Backend Engineer", Kind: KindBuilder,
				DefaultTasks:        []string{"API performance tuning", "database maintenance", "system monitoring"},
				ConsultsDocs:        true,
				QuestionProbability: 0.3},
			{ID: "fe-01", Name: "Frontend Engineer", Kind: KindBuilder,
				DefaultTasks:        []string{"UI component upkeep", "performance tuning", "UX analysis"},
				ConsultsDocs:        true,
				QuestionProbability: 0.3},
			{ID: "de-01", Name: "DevOps Engineer", Kind: KindReleaser,
				DefaultTasks: []string{"system monitoring", "security scan", "performance analysis"}},
		},
		Durations: map[string]distribution.DistSpec{
			StepIssueInterarrival: distribution.Uniform(20, 30),
			StepAnalysis:          distribution.Uniform(2, 4),
			StepComment:           distribution.Uniform(0.1, 0.3),
			StepDocReview:         distribution.Uniform(0.5, 1),
			StepAnswerWait:        distribution.Uniform(1, 3),
			StepAIAssist:          distribution.Uniform(2, 4),
			StepDevelopment:       distribution.Uniform(8, 16),
			StepRework:            distribution.Uniform(2, 4),
			StepOpenPR:            distribution.Uniform(0.2, 0.5),
			StepReview:            distribution.Uniform(1, 3),
			StepUAT:               distribution.Uniform(1, 2),
			StepDeployPrep:        distribution.Uniform(1, 2),
			StepDeployExecute:     distribution.Uniform(2, 4),
			StepDeployVerify:      distribution.Uniform(0.5, 1),
			StepDefaultTask:       distribution.Uniform(1, 3),
			StepIdlePoll:          distribution.Uniform(2, 4),
			StepReport:            distribution.Uniform(0.1, 0.3),
		},
		PipelineStages: []string{StageReview, StageUAT, StageDeploy},
		Review:         ReviewConfig{PassProbability: 0.7, MaxReworkCycles: 3},
		Issues: IssuesConfig{
			MaxIssues: 4,
			Titles: []string{
				"User registration for the education game",
				"Lesson progress tracking",
				"Leaderboard",
				"Parent dashboard",
			},
			TaskTemplates: []TaskTemplate{
				{Title: "Backend API design", Role: "be-01"},
				{Title: "Database schema", Role: "be-01"},
				{Title: "Frontend screens", Role: "fe-01"},
			},
		},
		ReportInterval: 24,
		MilestoneSize:  2,
	}
}

// LoadConfig reads a YAML scenario on top of DefaultConfig. Unknown fields are
// errors. Maps merge with the defaults; lists replace them.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML scenario bytes on top of DefaultConfig.
func ParseConfig(data []byte) (*SimulationConfig, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return cfg, nil
}

// Stages returns the effective pipeline.
func (c *SimulationConfig) Stages() []string {
	if c.PipelineStages == nil {
		return []string{StageReview, StageUAT, StageDeploy}
	}
	return c.PipelineStages
}

// HasStage reports whether stage is in the effective pipeline.
func (c *SimulationConfig) HasStage(stage string) bool {
	for _, s := range c.Stages() {
		if s == stage {
			return true
		}
	}
	return false
}

// Role returns the role with the given id.
func (c *SimulationConfig) Role(id string) (RoleSpec, bool) {
	for _, r := range c.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return RoleSpec{}, false
}

// RolesOfKind returns the roles of the given kind in declaration order.
func (c *SimulationConfig) RolesOfKind(kind RoleKind) []RoleSpec {
	var out []RoleSpec
	for _, r := range c.Roles {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// RoleIDs returns every role id in declaration order.
func (c *SimulationConfig) RoleIDs() []string {
	ids := make([]string, len(c.Roles))
	for i, r := range c.Roles {
		ids[i] = r.ID
	}
	return ids
}

// requiredSteps lists the duration steps this configuration samples.
func (c *SimulationConfig) requiredSteps() []string {
	steps := []string{StepAnalysis, StepComment, StepAIAssist, StepDevelopment, StepOpenPR}
	if c.Issues.MaxIssues > 1 {
		steps = append(steps, StepIssueInterarrival)
	}
	for _, r := range c.Roles {
		if len(r.DefaultTasks) > 0 {
			steps = append(steps, StepDefaultTask, StepIdlePoll)
			break
		}
	}
	for _, r := range c.Roles {
		if r.ConsultsDocs {
			steps = append(steps, StepDocReview, StepAnswerWait)
			break
		}
	}
	if c.HasStage(StageReview) {
		steps = append(steps, StepReview, StepRework)
	}
	if c.HasStage(StageUAT) {
		steps = append(steps, StepUAT)
	}
	if c.HasStage(StageDeploy) {
		steps = append(steps, StepDeployPrep, StepDeployExecute, StepDeployVerify)
	}
	if c.ReportInterval > 0 {
		steps = append(steps, StepReport)
	}
	return steps
}

// requiredPools lists the pools this configuration acquires.
func (c *SimulationConfig) requiredPools() []string {
	pools := []string{PoolAITools, PoolGitHubAPI}
	if c.HasStage(StageReview) {
		pools = append(pools, PoolCodeReviewers)
	}
	if c.HasStage(StageDeploy) {
		pools = append(pools, PoolDeployment)
	}
	return pools
}

func validateFiniteNonNegative(field string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return sim.NewConfigError(field, "must be a finite number, got %v", val)
	}
	if val < 0 {
		return sim.NewConfigError(field, "must be >= 0, got %v", val)
	}
	return nil
}

func validateProbability(field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return sim.NewConfigError(field, "must be in [0, 1], got %v", p)
	}
	return nil
}

// Validate returns the first violation as a *sim.ConfigError.
func (c *SimulationConfig) Validate() error {
	if math.IsNaN(c.Horizon) || math.IsInf(c.Horizon, 0) || c.Horizon <= 0 {
		return sim.NewConfigError("horizon", "must be a finite positive number, got %v", c.Horizon)
	}
	if err := c.validateResources(); err != nil {
		return err
	}
	if err := c.validateRoles(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	if err := c.validateIssues(); err != nil {
		return err
	}
	if err := validateFiniteNonNegative("report_interval", c.ReportInterval); err != nil {
		return err
	}
	if c.MilestoneSize < 0 {
		return sim.NewConfigError("milestone_size", "must be >= 0, got %d", c.MilestoneSize)
	}
	return c.validateDurations()
}

func (c *SimulationConfig) validateResources() error {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !knownPools[name] {
			return sim.NewConfigError("resources."+name, "unknown resource; valid: ai_tools, github_api, code_reviewers, deployment_env")
		}
		if c.Resources[name] <= 0 {
			return sim.NewConfigError("resources."+name, "capacity must be > 0, got %d", c.Resources[name])
		}
	}
	for _, name := range c.requiredPools() {
		if _, ok := c.Resources[name]; !ok {
			return sim.NewConfigError("resources."+name, "required by the configured pipeline but missing")
		}
	}
	return nil
}

func (c *SimulationConfig) validateRoles() error {
	seen := make(map[string]bool, len(c.Roles))
	for i, r := range c.Roles {
		field := fmt.Sprintf("roles[%d]", i)
		if r.ID == "" {
			return sim.NewConfigError(field+".id", "must not be empty")
		}
		if r.ID == RequesterID || r.ID == ReporterID || strings.HasPrefix(r.ID, reviewerPrefix) {
			return sim.NewConfigError(field+".id", "%q is reserved for an auxiliary process", r.ID)
		}
		if seen[r.ID] {
			return sim.NewConfigError(field+".id", "duplicate role id %q", r.ID)
		}
		seen[r.ID] = true
		switch r.Kind {
		case KindPlanner, KindBuilder, KindReleaser:
		default:
			return sim.NewConfigError(field+".kind", "unknown kind %q; valid: planner, builder, releaser", r.Kind)
		}
		if err := validateProbability(field+".question_probability", r.QuestionProbability); err != nil {
			return err
		}
	}
	return nil
}

func (c *SimulationConfig) validatePipeline() error {
	last := -1
	for i, s := range c.Stages() {
		pos, ok := stageOrder[s]
		if !ok {
			return sim.NewConfigError(fmt.Sprintf("pipeline_stages[%d]", i), "unknown stage %q; valid: review, uat, deploy", s)
		}
		if pos <= last {
			return sim.NewConfigError(fmt.Sprintf("pipeline_stages[%d]", i), "stage %q is duplicated or out of order (review < uat < deploy)", s)
		}
		last = pos
	}
	if c.HasStage(StageUAT) && len(c.RolesOfKind(KindPlanner)) == 0 {
		return sim.NewConfigError("pipeline_stages", "uat requires a planner role")
	}
	if c.HasStage(StageDeploy) && len(c.RolesOfKind(KindReleaser)) == 0 {
		return sim.NewConfigError("pipeline_stages", "deploy requires a releaser role")
	}
	return nil
}

func (c *SimulationConfig) validateReview() error {
	if err := validateProbability("review.pass_probability", c.Review.PassProbability); err != nil {
		return err
	}
	for i, p := range c.Review.PassProbabilitySchedule {
		if err := validateProbability(fmt.Sprintf("review.pass_probability_schedule[%d]", i), p); err != nil {
			return err
		}
	}
	if c.Review.MaxReworkCycles < 0 {
		return sim.NewConfigError("review.max_rework_cycles", "must be >= 0, got %d", c.Review.MaxReworkCycles)
	}
	return nil
}

func (c *SimulationConfig) validateIssues() error {
	if c.Issues.MaxIssues < 0 {
		return sim.NewConfigError("issues.max_issues", "must be >= 0, got %d", c.Issues.MaxIssues)
	}
	if c.Issues.MaxIssues > 0 && len(c.RolesOfKind(KindPlanner)) == 0 {
		return sim.NewConfigError("roles", "issues require a planner role")
	}
	for i, tpl := range c.Issues.TaskTemplates {
		field := fmt.Sprintf("issues.task_templates[%d].role", i)
		r, ok := c.Role(tpl.Role)
		if !ok {
			return sim.NewConfigError(field, "unknown role %q", tpl.Role)
		}
		if r.Kind != KindBuilder && r.Kind != KindReleaser {
			return sim.NewConfigError(field, "role %q is a %s; tasks go to builders or releasers", tpl.Role, r.Kind)
		}
	}
	return nil
}

func (c *SimulationConfig) validateDurations() error {
	steps := make([]string, 0, len(c.Durations))
	for step := range c.Durations {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		if !knownSteps[step] {
			return sim.NewConfigError("durations."+step, "unknown step")
		}
		if _, err := distribution.NewSampler(c.Durations[step]); err != nil {
			return sim.NewConfigError("durations."+step, "%v", err)
		}
	}
	for _, step := range c.requiredSteps() {
		if _, ok := c.Durations[step]; !ok {
			return sim.NewConfigError("durations."+step, "required by this configuration but missing")
		}
	}
	return nil
}
