// Package dsp provides the signal conditioning applied to raw channel traces
// before harmonic analysis: a fixed low-pass Butterworth profile run forward
// and backward for zero net phase shift.
package dsp

import (
	"errors"
	"fmt"
)

// Filter profile used for conditioning response channels. The cutoff is
// expressed as a fraction of the Nyquist frequency, so the design is
// independent of the actual sample rate. Only one profile is supported;
// these are variables rather than a configuration object so a caller can
// still tune them.
var (
	FilterOrder    = 8
	CutoffFraction = 0.01
	PadLen         = 150
)

// ErrInsufficientSamples is returned when a trace is too short for the
// configured edge padding.
var ErrInsufficientSamples = errors.New("trace shorter than filter pad length")

// Condition applies the low-pass profile to a channel trace, forward and
// backward, with odd-reflection edge padding to suppress boundary
// transients. The input is not modified.
func Condition(values []float64) ([]float64, error) {
	n := len(values)
	if n <= PadLen {
		return nil, fmt.Errorf("conditioning trace: %w (%d samples, pad %d)", ErrInsufficientSamples, n, PadLen)
	}

	// Design in the normalized domain: sample rate 2, Nyquist 1.
	sections := ButterworthLP(CutoffFraction, FilterOrder, 2)

	buf := oddPad(values, PadLen)

	filterCascade(sections, buf)
	reverse(buf)
	filterCascade(sections, buf)
	reverse(buf)

	out := make([]float64, n)
	copy(out, buf[PadLen:PadLen+n])
	return out, nil
}

// oddPad extends the trace at both ends by reflecting it about the end
// samples, so the extension is continuous in value and slope.
func oddPad(values []float64, pad int) []float64 {
	n := len(values)
	buf := make([]float64, n+2*pad)

	first, last := values[0], values[n-1]
	for i := 0; i < pad; i++ {
		buf[i] = 2*first - values[pad-i]
		buf[pad+n+i] = 2*last - values[n-2-i]
	}
	copy(buf[pad:], values)
	return buf
}

func filterCascade(sections []Coefficients, buf []float64) {
	for _, c := range sections {
		s := NewSection(c)
		s.ProcessBlock(buf)
	}
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
