// Package dynamo provides the shared primitives for the cloth and force-field
// simulation.
//
// The package defines the types exchanged between the simulation core and the
// code around it:
//
//   - [Frame]: positions and velocities published once per render frame
//   - [Config]: fixed/variable cadence scheduling parameters
//   - [Result]: recorded frames and metric values of a run
//   - [Metric] and [Observer]: per-frame consumers
//
// Vector math is done on [r3.Vec] from gonum; this package only adds the few
// helpers the simulation needs on top of it.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent mutation. A simulation and
// all of its frames are owned by a single goroutine.
package dynamo
