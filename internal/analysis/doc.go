// Package analysis post-processes simulation output.
//
//   - [ChannelStats]: per-channel mean, deviation and range
//   - [SpectralFlatness], [Autocorrelation]: whiteness checks for sensor noise
//   - [SchemeError], [ObservedOrder]: accuracy of an integration scheme
//     against a fine-step RK4 reference
//   - [PhasePortrait]: two-channel trajectories rendered as ASCII
//
// # Noise Checks
//
// Measurement noise should be white; its spectral flatness is near
// e^-γ ≈ 0.56 while a deterministic tone scores near 0:
//
//	if analysis.SpectralFlatness(residual) < 0.4 {
//	    // residual is correlated
//	}
package analysis
