package distribution

import "fmt"

// Anchor is one (quantile, value) point of an empirical quantile table.
type Anchor struct {
	Quantile float64
	Value    float64
}

// PiecewiseQuantile is an empirical distribution defined by ordered
// (quantile, value) anchors, linearly interpolated within each quantile
// band. The anchor set must start at quantile 0 and end at quantile 1 so
// that Ppf is total on [0,1) with no gaps, and it is continuous at band
// boundaries by construction.
type PiecewiseQuantile struct {
	anchors []Anchor
}

// NewPiecewiseQuantile validates the anchor set and returns the sampler.
func NewPiecewiseQuantile(anchors []Anchor) (*PiecewiseQuantile, error) {
	if len(anchors) < 2 {
		return nil, fmt.Errorf("distribution: quantile table needs at least two anchors, got %d", len(anchors))
	}
	if anchors[0].Quantile != 0 {
		return nil, fmt.Errorf("distribution: quantile table must start at quantile 0, got %v", anchors[0].Quantile)
	}
	if last := anchors[len(anchors)-1].Quantile; last != 1 {
		return nil, fmt.Errorf("distribution: quantile table must end at quantile 1, got %v", last)
	}
	for i := 1; i < len(anchors); i++ {
		if anchors[i].Quantile <= anchors[i-1].Quantile {
			return nil, fmt.Errorf("distribution: quantile anchors must be strictly increasing, got %v after %v",
				anchors[i].Quantile, anchors[i-1].Quantile)
		}
	}
	table := make([]Anchor, len(anchors))
	copy(table, anchors)
	return &PiecewiseQuantile{anchors: table}, nil
}

// Ppf linearly interpolates the value within the band containing p.
func (q *PiecewiseQuantile) Ppf(p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p >= 1 {
		return q.anchors[len(q.anchors)-1].Value
	}
	for i := 1; i < len(q.anchors); i++ {
		lo, hi := q.anchors[i-1], q.anchors[i]
		if p < hi.Quantile {
			frac := (p - lo.Quantile) / (hi.Quantile - lo.Quantile)
			return lo.Value + frac*(hi.Value-lo.Value)
		}
	}
	return q.anchors[len(q.anchors)-1].Value
}
