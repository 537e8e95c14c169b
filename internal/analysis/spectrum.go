package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

var ErrTooShort = errors.New("analysis: series too short")

// Resample interpolates values sampled at increasing times onto n equally
// spaced points. Event location makes stored samples non-uniform.
func Resample(times, values []float64, n int) ([]float64, float64, error) {
	if len(times) != len(values) {
		return nil, 0, errors.New("analysis: times and values differ in length")
	}
	if len(times) < 2 || n < 2 {
		return nil, 0, ErrTooShort
	}
	t0, t1 := times[0], times[len(times)-1]
	if t1 <= t0 {
		return nil, 0, ErrTooShort
	}

	dt := (t1 - t0) / float64(n-1)
	out := make([]float64, n)
	j := 0
	for i := range out {
		t := t0 + float64(i)*dt
		for j < len(times)-2 && times[j+1] < t {
			j++
		}
		span := times[j+1] - times[j]
		if span <= 0 {
			out[i] = values[j+1]
			continue
		}
		a := (t - times[j]) / span
		a = math.Max(0, math.Min(1, a))
		out[i] = values[j] + a*(values[j+1]-values[j])
	}
	return out, dt, nil
}

// Spectrum returns frequencies and magnitudes up to the Nyquist limit.
// The mean is removed and a Hann window applied before the transform.
func Spectrum(times, values []float64) ([]float64, []float64, error) {
	data, dt, err := Resample(times, values, len(times))
	if err != nil {
		return nil, nil, err
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for i := range data {
		data[i] -= mean
	}
	window.Apply(data, window.Hann)

	coeffs := fft.FFTReal(data)
	n := len(coeffs)
	freqs := make([]float64, n/2)
	power := make([]float64, n/2)
	for i := range power {
		freqs[i] = float64(i) / (float64(n) * dt)
		power[i] = cmplx.Abs(coeffs[i])
	}
	return freqs, power, nil
}

// DominantFrequency returns the frequency with the largest magnitude,
// ignoring the DC bin.
func DominantFrequency(times, values []float64) (float64, float64, error) {
	freqs, power, err := Spectrum(times, values)
	if err != nil {
		return 0, 0, err
	}
	if len(power) < 2 {
		return 0, 0, ErrTooShort
	}
	best := 1
	for i := 2; i < len(power); i++ {
		if power[i] > power[best] {
			best = i
		}
	}
	return freqs[best], power[best], nil
}
