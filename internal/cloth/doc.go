// Package cloth implements a mass-spring cloth.
//
// The cloth is a regular grid of mass points stored in one contiguous
// [Store] and linked by a [Network] of springs that refer to points by
// index. A [Simulator] ties them to a [ForceField] and exposes the two
// update entry points a driver calls at different rates:
//
//   - [Simulator.AdvancePhysics]: accumulates gravity, field and spring
//     forces into velocities (fixed cadence)
//   - [Simulator.AdvanceRender]: moves unconstrained points by their
//     velocity (variable cadence, semi-implicit Euler)
//
// Within a frame the driver must run all pending physics ticks before the
// render step.
package cloth
