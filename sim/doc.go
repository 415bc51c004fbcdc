// Package sim provides the discrete-event simulation kernel for swarm-sim.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - simulator.go: virtual clock, event heap ordered by (due time, sequence id), the Run loop
//   - process.go: resumable processes and the suspension protocol (timer, resource, queue)
//   - resource.go: capacity-bounded pools with FIFO waiters
//   - store.go: blocking FIFO queues used for hand-offs between processes
//
// # Architecture
//
// The kernel has no knowledge of the workflow being simulated. Sub-packages build on it:
//   - sim/distribution/: duration samplers selected by configuration
//   - sim/domain/: Task, Issue, PullRequest and Milestone state machines
//   - sim/eventlog/: append-only event ledger and the pure metric reductions over it
//   - sim/workflow/: SimulationConfig, the role processes and the Driver that wires them
//
// Everything runs on a single goroutine. Concurrency between processes is simulated
// interleaving: a process runs instantaneously between suspension points and is resumed
// by the event heap in (time, sequence) order, which makes runs reproducible bit for bit.
package sim
