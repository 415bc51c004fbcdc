package sim

// script is a Logic that runs a fixed list of steps, one per Step call, and
// exits when the list is exhausted.
type script struct {
	steps []func(p *Process) Yield
	next  int
}

func (s *script) Step(p *Process) (Yield, error) {
	if s.next >= len(s.steps) {
		return Exit(), nil
	}
	f := s.steps[s.next]
	s.next++
	return f(p), nil
}

func newScript(steps ...func(p *Process) Yield) *script {
	return &script{steps: steps}
}

// interval is a closed-open span of virtual time recorded by a test process.
type interval struct {
	who        string
	start, end Time
}
