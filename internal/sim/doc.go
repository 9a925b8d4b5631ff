// Package sim schedules a cloth simulation on two clocks.
//
// Physics runs on a fixed step: every render frame adds its duration to an
// accumulator, and the [Driver] drains it in whole fixed ticks, regenerating
// the force field and then accumulating forces into the cloth for each tick.
// Exactly one render integration follows per frame with the frame's own
// duration, so a frame may see zero, one or several physics ticks.
//
// The number of ticks per frame is capped by [dynamo.Config].MaxSubsteps;
// time beyond the cap is dropped rather than carried over.
package sim
