package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	N      int
}

// Describe summarises one series.
func Describe(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	return Stats{Mean: mean, StdDev: std, Min: floats.Min(x), Max: floats.Max(x), N: len(x)}
}

// ChannelStats summarises each column of rows, where every row is one
// observation of the same vector.
func ChannelStats(rows [][]float64) []Stats {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	out := make([]Stats, dim)
	col := make([]float64, len(rows))
	for j := 0; j < dim; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		out[j] = Describe(col)
	}
	return out
}

// SpectralFlatness is the ratio of the geometric to the arithmetic mean of
// the periodogram of x with its mean removed. DC and Nyquist bins are left
// out. White noise scores about 0.56, pure tones near 0.
func SpectralFlatness(x []float64) float64 {
	n := len(x)
	if n < 4 {
		return 0
	}

	mean := stat.Mean(x, nil)
	centered := make([]float64, n)
	for i, v := range x {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	bins := (n+1)/2 - 1
	if bins < 1 {
		return 0
	}

	var sumLog, sum float64
	for k := 1; k <= bins; k++ {
		p := cmplx.Abs(spectrum[k])
		p *= p
		sum += p
		sumLog += math.Log(p)
	}
	if sum == 0 {
		return 0
	}

	return math.Exp(sumLog/float64(bins)) / (sum / float64(bins))
}

// Autocorrelation is the normalized sample autocorrelation of x at lag.
func Autocorrelation(x []float64, lag int) float64 {
	n := len(x)
	if lag < 0 || lag >= n {
		return 0
	}

	mean := stat.Mean(x, nil)
	var num, den float64
	for i := 0; i < n; i++ {
		d := x[i] - mean
		den += d * d
		if i+lag < n {
			num += d * (x[i+lag] - mean)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// SummarizeMetrics collects each named metric across runs.
func SummarizeMetrics(runs []map[string]float64) map[string]Stats {
	values := make(map[string][]float64)
	for _, run := range runs {
		for name, v := range run {
			values[name] = append(values[name], v)
		}
	}

	out := make(map[string]Stats, len(values))
	for name, v := range values {
		out[name] = Describe(v)
	}
	return out
}
