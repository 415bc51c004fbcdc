package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible run: the same key and configuration
// give a byte-identical event log.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Named random streams.
const (
	// SubsystemRequester drives issue interarrival times.
	SubsystemRequester = "requester"
	// SubsystemReviewer drives review outcomes.
	SubsystemReviewer = "reviewer"
)

// SubsystemProcess names the stream of one process. Each process draws from
// its own stream, so adding a role leaves the other roles' samples unchanged.
func SubsystemProcess(id string) string {
	return "process_" + id
}

// PartitionedRNG hands out one *rand.Rand per named stream. Every stream is
// seeded with key XOR fnv1a64(name), so streams never share state.
// Not safe for concurrent use; the simulator is single-threaded.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates the stream set for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use. Repeated
// calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(deriveSeed(p.key, name)))
		p.streams[name] = rng
	}
	return rng
}

// Key returns the key the streams derive from.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func deriveSeed(key SimulationKey, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(key) ^ int64(h.Sum64())
}
