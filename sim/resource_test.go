package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holder returns a script that acquires pool, holds it for d hours and releases it,
// appending the held interval to out.
func holder(t *testing.T, who string, pool *Pool, d Time, out *[]interval) *script {
	var start Time
	return newScript(
		func(p *Process) Yield { return Acquire(pool) },
		func(p *Process) Yield {
			start = p.Now()
			assert.LessOrEqual(t, pool.InUse(), pool.Capacity())
			return Timeout(d)
		},
		func(p *Process) Yield {
			_, err := p.Release(pool)
			require.NoError(t, err)
			*out = append(*out, interval{who: who, start: start, end: p.Now()})
			return Exit()
		},
	)
}

func TestPool_NonPositiveCapacityIsConfigError(t *testing.T) {
	s := NewSimulator()
	for _, c := range []int{0, -1} {
		_, err := NewPool(s, "ai_tools", c)
		require.Error(t, err)
		var cfgErr *ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	}
}

func TestPool_CapacityOneSerializesHolders(t *testing.T) {
	// GIVEN a capacity-1 pool and two processes both needing a 2h step at t=0
	s := NewSimulator()
	pool, err := NewPool(s, "ai_tools", 1)
	require.NoError(t, err)
	var got []interval
	_, err = s.Spawn("be-01", holder(t, "be-01", pool, 2, &got), false)
	require.NoError(t, err)
	_, err = s.Spawn("fe-01", holder(t, "fe-01", pool, 2, &got), false)
	require.NoError(t, err)

	// WHEN the simulation runs
	require.NoError(t, s.Run(100))

	// THEN the first-scheduled process holds [0,2) and the second [2,4)
	assert.Equal(t, []interval{
		{who: "be-01", start: 0, end: 2},
		{who: "fe-01", start: 2, end: 4},
	}, got)
	assert.Zero(t, pool.InUse())
	assert.Equal(t, 2, pool.Grants())
	assert.Equal(t, Time(4), pool.HeldTime())
	assert.Equal(t, Time(2), pool.WaitTime())
	assert.Empty(t, s.Stalled())
}

func TestPool_GrantsAreFIFO(t *testing.T) {
	// GIVEN a capacity-2 pool and five processes requesting at staggered times
	s := NewSimulator()
	pool, err := NewPool(s, "github_api", 2)
	require.NoError(t, err)
	var got []interval
	for i, who := range []string{"p1", "p2", "p3", "p4", "p5"} {
		delay := Time(i) * 0.1
		inner := holder(t, who, pool, 3, &got)
		steps := append([]func(p *Process) Yield{func(p *Process) Yield { return Timeout(delay) }}, inner.steps...)
		_, err := s.Spawn(who, newScript(steps...), false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Run(100))

	// THEN grants start in request order and never exceed capacity
	require.Len(t, got, 5)
	starts := map[string]Time{}
	for _, iv := range got {
		starts[iv.who] = iv.start
	}
	assert.LessOrEqual(t, starts["p1"], starts["p2"])
	assert.LessOrEqual(t, starts["p2"], starts["p3"])
	assert.LessOrEqual(t, starts["p3"], starts["p4"])
	assert.LessOrEqual(t, starts["p4"], starts["p5"])
	assert.InDelta(t, 3.0, float64(starts["p3"]), 1e-9, "p3 gets p1's unit the instant it is released")
	assert.InDelta(t, 3.1, float64(starts["p4"]), 1e-9)
	assert.InDelta(t, 6.0, float64(starts["p5"]), 1e-9)
	assert.Equal(t, 3, pool.MaxQueueLen())

	for _, at := range []Time{0.5, 3.05, 4, 6.05} {
		active := 0
		for _, iv := range got {
			if iv.start <= at && at < iv.end {
				active++
			}
		}
		assert.LessOrEqual(t, active, pool.Capacity(), "at t=%v", at)
	}
}

func TestPool_PriorityJumpsAheadOfLowerPriorityOnly(t *testing.T) {
	// GIVEN a busy capacity-1 pool with two plain waiters queued before a priority waiter
	s := NewSimulator()
	pool, err := NewPool(s, "ai_tools", 1)
	require.NoError(t, err)
	var order []string
	acquireThenLog := func(who string, delay Time, priority int) *script {
		return newScript(
			func(p *Process) Yield { return Timeout(delay) },
			func(p *Process) Yield { return AcquireWithPriority(pool, priority) },
			func(p *Process) Yield {
				order = append(order, who)
				return Timeout(1)
			},
			func(p *Process) Yield {
				_, err := p.Release(pool)
				require.NoError(t, err)
				return Exit()
			},
		)
	}
	for _, spec := range []struct {
		who      string
		delay    Time
		priority int
	}{
		{"first", 0, 0},
		{"plain-a", 0.1, 0},
		{"plain-b", 0.2, 0},
		{"planner", 0.3, 1},
		{"plain-c", 0.4, 1},
	} {
		_, err := s.Spawn(spec.who, acquireThenLog(spec.who, spec.delay, spec.priority), false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Run(100))

	// THEN priority waiters go first, FIFO among themselves, then the plain ones in order
	assert.Equal(t, []string{"first", "planner", "plain-c", "plain-a", "plain-b"}, order)
}

func TestPool_ReleaseWithoutGrantFails(t *testing.T) {
	s := NewSimulator()
	pool, err := NewPool(s, "deployment_env", 1)
	require.NoError(t, err)
	var relErr error
	_, err = s.Spawn("de-01", newScript(func(p *Process) Yield {
		_, relErr = p.Release(pool)
		return Exit()
	}), false)
	require.NoError(t, err)

	require.NoError(t, s.Run(1))
	assert.ErrorIs(t, relErr, ErrNotHeld)
}

func TestPool_DoubleAcquireFailsRun(t *testing.T) {
	s := NewSimulator()
	pool, err := NewPool(s, "deployment_env", 2)
	require.NoError(t, err)
	_, err = s.Spawn("de-01", newScript(
		func(p *Process) Yield { return Acquire(pool) },
		func(p *Process) Yield { return Acquire(pool) },
	), false)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Run(1), ErrAlreadyHeld)
}

func TestPool_WaiterNeverGrantedIsStalled(t *testing.T) {
	// GIVEN a holder busy past the horizon and a second process waiting on the pool
	s := NewSimulator()
	pool, err := NewPool(s, "deployment_env", 1)
	require.NoError(t, err)
	_, err = s.Spawn("hog", newScript(
		func(p *Process) Yield { return Acquire(pool) },
		func(p *Process) Yield { return Timeout(100) },
	), true)
	require.NoError(t, err)
	_, err = s.Spawn("de-01", newScript(
		func(p *Process) Yield { return Acquire(pool) },
		func(p *Process) Yield { return Exit() },
	), false)
	require.NoError(t, err)

	require.NoError(t, s.Run(50))

	// THEN the run completes and the waiter is reported, not crashed
	stalls := s.Stalled()
	require.Len(t, stalls, 1)
	assert.Equal(t, "de-01", stalls[0].Process)
	assert.Equal(t, WaitingOnResource, stalls[0].State.Kind)
	assert.Equal(t, "deployment_env", stalls[0].State.Pool)
}

func TestPool_ExitReleasesHeldGrants(t *testing.T) {
	// GIVEN a process that exits while still holding two pools, and a waiter on one of them
	s := NewSimulator()
	ai, err := NewPool(s, "ai_tools", 1)
	require.NoError(t, err)
	gh, err := NewPool(s, "github_api", 1)
	require.NoError(t, err)
	_, err = s.Spawn("be-01", newScript(
		func(p *Process) Yield { return Acquire(ai) },
		func(p *Process) Yield { return Acquire(gh) },
		func(p *Process) Yield { return Timeout(2) },
		func(p *Process) Yield { return Exit() },
	), false)
	require.NoError(t, err)
	grantedAt := Time(-1)
	_, err = s.Spawn("fe-01", newScript(
		func(p *Process) Yield { return Acquire(ai) },
		func(p *Process) Yield {
			grantedAt = p.Now()
			_, err := p.Release(ai)
			require.NoError(t, err)
			return Exit()
		},
	), false)
	require.NoError(t, err)

	// WHEN the run completes
	require.NoError(t, s.Run(10))

	// THEN the exit hands the unit to the waiter in the same instant
	assert.Equal(t, Time(2), grantedAt)
	assert.Zero(t, ai.InUse())
	assert.Zero(t, gh.InUse())
	assert.Equal(t, Time(2), ai.HeldTime())
	assert.Equal(t, Time(2), gh.HeldTime())
	assert.Equal(t, Time(2), ai.WaitTime())
	assert.Empty(t, s.Stalled())
}

func TestPool_GrantOpenAtHorizonIsNotCounted(t *testing.T) {
	// GIVEN one hold that ends before the horizon and one still open at it
	s := NewSimulator()
	pool, err := NewPool(s, "deployment_env", 2)
	require.NoError(t, err)
	var done []interval
	_, err = s.Spawn("de-01", holder(t, "de-01", pool, 3, &done), false)
	require.NoError(t, err)
	_, err = s.Spawn("hog", newScript(
		func(p *Process) Yield { return Acquire(pool) },
		func(p *Process) Yield { return Timeout(100) },
	), true)
	require.NoError(t, err)

	// WHEN the run is cut off at t=10
	require.NoError(t, s.Run(10))

	// THEN only the released hold is in HeldTime and the open one is still in use
	require.Len(t, done, 1)
	assert.Equal(t, Time(3), pool.HeldTime())
	assert.Equal(t, 1, pool.InUse())
	assert.Equal(t, 2, pool.Grants())
}
