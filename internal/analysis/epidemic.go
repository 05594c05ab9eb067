package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/episim/internal/results"
)

var ErrNoData = errors.New("analysis: not enough samples")

// Peak is the maximum of one trajectory.
type Peak struct {
	Label string
	Time  float64
	Value float64
}

// Peaks returns the peak of every compartment of res, in label order.
func Peaks(res *results.Result) ([]Peak, error) {
	if res.Len() == 0 {
		return nil, ErrNoData
	}
	times := res.Times()
	peaks := make([]Peak, 0, len(res.Labels()))
	for _, label := range res.Labels() {
		col, _ := res.Column(label)
		p := Peak{Label: label, Time: times[0], Value: col[0]}
		for i, v := range col {
			if v > p.Value {
				p.Time, p.Value = times[i], v
			}
		}
		peaks = append(peaks, p)
	}
	return peaks, nil
}

// Change returns the final minus the initial value of a compartment. The
// negated change of the susceptibles is the final size of an outbreak.
func Change(res *results.Result, label string) (float64, error) {
	col, ok := res.Column(label)
	if !ok {
		return 0, fmt.Errorf("analysis: unknown compartment %q", label)
	}
	if len(col) == 0 {
		return 0, ErrNoData
	}
	return col[len(col)-1] - col[0], nil
}

// GrowthRate fits ln(x) = a + r*t by least squares over the first n
// positive samples of a compartment and returns r.
func GrowthRate(res *results.Result, label string, n int) (float64, error) {
	col, ok := res.Column(label)
	if !ok {
		return 0, fmt.Errorf("analysis: unknown compartment %q", label)
	}
	times := res.Times()

	var sx, sy, sxx, sxy float64
	count := 0
	for i, v := range col {
		if count == n {
			break
		}
		if v <= 0 {
			continue
		}
		t, y := times[i], math.Log(v)
		sx += t
		sy += y
		sxx += t * t
		sxy += t * y
		count++
	}
	if count < 2 {
		return 0, ErrNoData
	}
	fn := float64(count)
	den := fn*sxx - sx*sx
	if den == 0 {
		return 0, ErrNoData
	}
	return (fn*sxy - sx*sy) / den, nil
}

// Crossing returns the first time a compartment rises through threshold,
// interpolated linearly between samples. ok is false when it never does.
func Crossing(res *results.Result, label string, threshold float64) (t float64, ok bool, err error) {
	col, found := res.Column(label)
	if !found {
		return 0, false, fmt.Errorf("analysis: unknown compartment %q", label)
	}
	times := res.Times()
	for i := 1; i < len(col); i++ {
		prev, curr := col[i-1], col[i]
		if prev < threshold && curr >= threshold {
			frac := (threshold - prev) / (curr - prev)
			if math.IsNaN(frac) || math.IsInf(frac, 0) {
				frac = 0.5
			}
			return times[i-1] + frac*(times[i]-times[i-1]), true, nil
		}
	}
	return 0, false, nil
}
