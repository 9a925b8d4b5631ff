// Package analysis turns recorded cloth frames into signals and summarises
// them.
//
//   - [Series] and [PointAxis]: scalar time series extracted from frames
//   - [PowerSpectrum] and [DominantFrequency]: flutter frequency of a series
//   - [NewPhasePortrait]: position against velocity of one point
//
// Frame recordings are assumed to be evenly spaced in time, which holds for
// runs without frame jitter.
package analysis
