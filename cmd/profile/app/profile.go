package app

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/roman-kulish/pipe-harmonics/internal/storage"
)

// ProfileData is a (pipe × position) matrix of one derived quantity.
// Pipes index rows, positions index columns. Cells without a stored or
// finite value are nil.
type ProfileData struct {
	Quantity  string
	Pipes     []string
	Positions []string
	Values    [][]*float64
}

// NewProfileData arranges stored results into the profile matrix for the
// chosen quantity. Pipe and position labels sort numerically where
// possible so pipe 10 lands after pipe 9.
func NewProfileData(quantity string, results []*storage.ResultData) (*ProfileData, error) {
	type cell struct{ pipe, pos string }

	cells := make(map[cell]*float64, len(results))
	var pipes, positions []string

	for _, r := range results {
		if !r.Pipe.Valid || !r.Position.Valid {
			return nil, fmt.Errorf("result %d has no pipe/position key", r.RowIndex)
		}
		c := cell{pipe: r.Pipe.String, pos: r.Position.String}
		if _, ok := cells[c]; ok {
			return nil, fmt.Errorf("duplicate result for pipe %s position %s", c.pipe, c.pos)
		}

		derived := r.Derived()
		v, ok := derived[quantity]
		if !ok {
			return nil, fmt.Errorf("unknown quantity %q", quantity)
		}
		// NULL columns come back as NaN and render as missing cells.
		if math.IsNaN(v) {
			cells[c] = nil
		} else {
			cells[c] = &v
		}

		if !slices.Contains(pipes, c.pipe) {
			pipes = append(pipes, c.pipe)
		}
		if !slices.Contains(positions, c.pos) {
			positions = append(positions, c.pos)
		}
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("no results to render")
	}

	slices.SortFunc(pipes, compareLabels)
	slices.SortFunc(positions, compareLabels)

	values := make([][]*float64, len(pipes))
	for i, pipe := range pipes {
		values[i] = make([]*float64, len(positions))
		for j, pos := range positions {
			values[i][j] = cells[cell{pipe: pipe, pos: pos}]
		}
	}

	return &ProfileData{
		Quantity:  quantity,
		Pipes:     pipes,
		Positions: positions,
		Values:    values,
	}, nil
}

// Samples returns every present cell value, for bounds calculation.
func (p *ProfileData) Samples() []float64 {
	var samples []float64
	for _, row := range p.Values {
		for _, v := range row {
			if v != nil {
				samples = append(samples, *v)
			}
		}
	}
	return samples
}

func compareLabels(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return cmp.Compare(a, b)
}
