package app

import "slices"

const (
	// For fewer samples than this the percentiles are meaningless and the
	// raw min/max are used instead.
	minimumSampleCount = 20

	// minimumSpanFraction keeps the color range from collapsing when the
	// profile is nearly flat.
	minimumSpanFraction = 1e-6
)

// ValueBounds is the value range mapped onto the color scale.
type ValueBounds struct {
	Min float64
	Max float64
}

// computeBounds derives the color range from the sample distribution:
// 5th to 95th percentile with a 10% margin, so a few outlier cells do
// not wash out the rest of the profile. Manual overrides win.
func computeBounds(samples []float64, manualMin, manualMax *float64) ValueBounds {
	var b ValueBounds

	switch {
	case len(samples) == 0:
		b = ValueBounds{Min: 0, Max: 1}

	case len(samples) < minimumSampleCount:
		b = ValueBounds{Min: slices.Min(samples), Max: slices.Max(samples)}

	default:
		sorted := slices.Clone(samples)
		slices.Sort(sorted)

		b = ValueBounds{
			Min: sorted[len(sorted)*5/100],
			Max: sorted[len(sorted)*95/100],
		}

		margin := (b.Max - b.Min) / 10
		b.Min -= margin
		b.Max += margin
	}

	if span := b.Max - b.Min; span < minimumSpanFraction {
		center := (b.Max + b.Min) / 2
		b.Min = center - minimumSpanFraction/2
		b.Max = center + minimumSpanFraction/2
	}

	if manualMin != nil {
		b.Min = *manualMin
	}
	if manualMax != nil {
		b.Max = *manualMax
	}
	return b
}
