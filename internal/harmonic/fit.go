// Package harmonic fits sinusoidal harmonic content to uniformly sampled
// time series. A fit holds one phasor (amplitude, phase) per requested
// harmonic number and supports derivative and complex-ratio operations
// between fits.
//
// Convention: the signal is modeled per harmonic h as
//
//	a*sin(h*w*t) + b*cos(h*w*t) = A*sin(h*w*t + phi)
//
// with A = sqrt(a^2+b^2) and phi = atan2(b, a). The time derivative of
// A*sin(h*w*t+phi) is A*h*w*sin(h*w*t+phi+pi/2), which is what Derivative
// implements; Divide subtracts phases, so the three operations stay
// internally consistent.
package harmonic

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrHarmonicSetMismatch is returned by Divide when the two fits were made
// with different harmonic-number sets.
var ErrHarmonicSetMismatch = errors.New("harmonic sets differ")

// ErrDegenerateSignal is returned when a fundamental frequency cannot be
// estimated from the input, e.g. for an all-zero or constant trace.
var ErrDegenerateSignal = errors.New("cannot estimate fundamental frequency")

// Fit is the harmonic decomposition of one channel trace, or a derived
// view over one (Derivative) or two (Divide) fits. Read-only after
// creation.
type Fit struct {
	harmonics []int
	omega     float64 // fundamental angular frequency in rad/s
	amps      []float64
	phases    []float64
	offset    float64
}

// FitSeries fits the given harmonic numbers to a time series by least
// squares. harmonics must be non-empty and positive; the first entry is
// the reference harmonic whose estimated frequency anchors the fundamental
// angular frequency used by all other harmonics and by Derivative.
func FitSeries(t, y []float64, harmonics []int) (*Fit, error) {
	if len(harmonics) == 0 {
		return nil, errors.New("fitting harmonics: empty harmonic set")
	}
	for _, h := range harmonics {
		if h <= 0 {
			return nil, fmt.Errorf("fitting harmonics: invalid harmonic number %d", h)
		}
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf("fitting harmonics: time and value length mismatch (%d vs %d)", len(t), len(y))
	}

	freq, err := fundamentalFrequency(t, y)
	if err != nil {
		return nil, err
	}

	// The estimate tracks the dominant oscillation, which belongs to the
	// reference harmonic.
	omega := 2 * math.Pi * freq / float64(harmonics[0])

	coeffs, err := solveSinCos(t, y, harmonics, omega)
	if err != nil {
		return nil, err
	}

	f := Fit{
		harmonics: slices.Clone(harmonics),
		omega:     omega,
		amps:      make([]float64, len(harmonics)),
		phases:    make([]float64, len(harmonics)),
		offset:    coeffs[2*len(harmonics)],
	}
	for i := range harmonics {
		a, b := coeffs[2*i], coeffs[2*i+1]
		f.amps[i] = math.Hypot(a, b)
		f.phases[i] = math.Atan2(b, a)
	}
	return &f, nil
}

// Harmonics returns the harmonic numbers in fit order.
func (f *Fit) Harmonics() []int {
	return slices.Clone(f.harmonics)
}

// Amplitudes returns the fitted amplitudes aligned with the harmonic order.
func (f *Fit) Amplitudes() []float64 {
	return slices.Clone(f.amps)
}

// Phases returns the fitted phases (radians) aligned with the harmonic order.
func (f *Fit) Phases() []float64 {
	return slices.Clone(f.phases)
}

// Omega returns the fundamental angular frequency in rad/s.
func (f *Fit) Omega() float64 {
	return f.omega
}

// Frequency returns the fundamental frequency in Hz.
func (f *Fit) Frequency() float64 {
	return f.omega / (2 * math.Pi)
}

// Derivative returns the fit of the time-derivative signal: per harmonic h
// the amplitude is scaled by h*omega and the phase advanced by pi/2.
func (f *Fit) Derivative() *Fit {
	d := Fit{
		harmonics: slices.Clone(f.harmonics),
		omega:     f.omega,
		amps:      make([]float64, len(f.harmonics)),
		phases:    make([]float64, len(f.harmonics)),
	}
	for i, h := range f.harmonics {
		d.amps[i] = f.amps[i] * f.omega * float64(h)
		d.phases[i] = wrapPhase(f.phases[i] + math.Pi/2)
	}
	return &d
}

// Divide returns the complex ratio of two fits: per harmonic the amplitude
// quotient and phase difference. Both fits must share the same harmonic
// set and ordering. A zero or negligible denominator amplitude produces a
// non-finite ratio amplitude; it is passed through untouched so downstream
// consumers can detect it.
func (f *Fit) Divide(other *Fit) (*Fit, error) {
	if !slices.Equal(f.harmonics, other.harmonics) {
		return nil, fmt.Errorf("dividing fits: %w (%v vs %v)", ErrHarmonicSetMismatch, f.harmonics, other.harmonics)
	}

	q := Fit{
		harmonics: slices.Clone(f.harmonics),
		omega:     f.omega,
		amps:      make([]float64, len(f.harmonics)),
		phases:    make([]float64, len(f.harmonics)),
	}
	for i := range f.harmonics {
		q.amps[i] = f.amps[i] / other.amps[i]
		q.phases[i] = wrapPhase(f.phases[i] - other.phases[i])
	}
	return &q, nil
}

// RelativePowerDB returns the power at harmonic h relative to the total
// power across all fitted harmonics, in decibels. Returns -Inf when the
// harmonic carries no power and NaN when h is not part of the fit.
func (f *Fit) RelativePowerDB(h int) float64 {
	i := slices.Index(f.harmonics, h)
	if i < 0 {
		return math.NaN()
	}

	var total float64
	for _, a := range f.amps {
		total += a * a
	}
	return 10 * math.Log10(f.amps[i]*f.amps[i]/total)
}

// fundamentalFrequency estimates the dominant oscillation frequency from
// the interpolated zero crossings of the mean-removed signal. A linear
// regression of crossing time against crossing index averages out the
// perturbation that residual harmonic content adds to individual
// crossings.
func fundamentalFrequency(t, y []float64) (float64, error) {
	n := len(y)
	if n < 3 {
		return 0, fmt.Errorf("estimating frequency: %w", ErrDegenerateSignal)
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var crossings []float64
	for i := 1; i < n; i++ {
		y0, y1 := y[i-1]-mean, y[i]-mean
		switch {
		case y0 != 0 && y1 == 0:
			// The crossing lands exactly on a sample. Record it here;
			// the y0 == 0 side of the next pair is skipped so it is
			// counted once.
			crossings = append(crossings, t[i])
		case y0*y1 < 0:
			crossings = append(crossings, t[i-1]+(t[i]-t[i-1])*y0/(y0-y1))
		}
	}
	if len(crossings) < 2 {
		return 0, fmt.Errorf("estimating frequency: %w", ErrDegenerateSignal)
	}

	// Least-squares slope of crossing time vs index = average half period.
	m := float64(len(crossings))
	var sumI, sumT, sumIT, sumII float64
	for i, tc := range crossings {
		fi := float64(i)
		sumI += fi
		sumT += tc
		sumIT += fi * tc
		sumII += fi * fi
	}
	halfPeriod := (m*sumIT - sumI*sumT) / (m*sumII - sumI*sumI)
	if halfPeriod <= 0 || math.IsNaN(halfPeriod) || math.IsInf(halfPeriod, 0) {
		return 0, fmt.Errorf("estimating frequency: %w", ErrDegenerateSignal)
	}

	return 1 / (2 * halfPeriod), nil
}

// wrapPhase wraps an angle to (-pi, pi].
func wrapPhase(phi float64) float64 {
	for phi > math.Pi {
		phi -= 2 * math.Pi
	}
	for phi <= -math.Pi {
		phi += 2 * math.Pi
	}
	return phi
}
