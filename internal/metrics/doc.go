// Package metrics accumulates scalar figures of merit over the samples of
// a closed-loop run. Every metric starts empty and can be reused after
// Reset.
package metrics
