// Package viz renders simulation results for the terminal: lipgloss panels
// for run summaries and asciigraph charts for trajectories.
package viz
