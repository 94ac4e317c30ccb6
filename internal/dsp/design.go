package dsp

import "math"

// lowpassBiquad designs an RBJ cookbook lowpass biquad at freq (Hz) with
// quality factor q. Returns zero coefficients for invalid parameters.
func lowpassBiquad(freq, q, sampleRate float64) Coefficients {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 || q <= 0 {
		return Coefficients{}
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b1 := 1 - cw
	b0 := b1 / 2
	a0 := 1 + alpha

	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b0 / a0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}

// butterworthQ returns the quality factor for a Butterworth filter section.
// index ranges from 0 to (order/2 - 1) for the biquad sections.
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2 // default Q
	}

	return 1 / (2 * s)
}

// butterworthFirstOrderLP designs a first-order lowpass section.
// Used for odd-order filters.
func butterworthFirstOrderLP(freq, sampleRate float64) Coefficients {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return Coefficients{}
	}

	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: k * norm,
		B1: k * norm,
		B2: 0,
		A1: (k - 1) * norm,
		A2: 0,
	}
}

// ButterworthLP designs a lowpass Butterworth cascade.
//
// For odd orders, the final section is first-order (B2=A2=0).
func ButterworthLP(freq float64, order int, sampleRate float64) []Coefficients {
	if order <= 0 {
		return nil
	}
	sections := make([]Coefficients, 0, (order+1)/2)

	n2 := order / 2
	for i := n2 - 1; i >= 0; i-- {
		q := butterworthQ(order, i)
		sections = append(sections, lowpassBiquad(freq, q, sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, butterworthFirstOrderLP(freq, sampleRate))
	}
	return sections
}
