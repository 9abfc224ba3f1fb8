// Package hough fits the best line through a fixed anchor point with a
// weighted Hough-style vote over (angle, offset) cells.
package hough

import (
	"errors"
	"fmt"
	"math"

	"TrendScope/internal/model"
)

// ErrNoLine is returned when no cell collects more than MinVotes.
var ErrNoLine = errors.New("no line found")

const degenerateSin = 1e-10

// Point is an (index, price) pair.
type Point struct {
	X float64
	Y float64
}

// Params tunes the transform.
type Params struct {
	AngleResolution   float64 `yaml:"angle_resolution"`   // degrees
	OffsetResolution  float64 `yaml:"offset_resolution"`  // offset bucket width
	DistanceThreshold float64 `yaml:"distance_threshold"` // max |rho-rho0| that still votes
	MinVotes          float64 `yaml:"min_votes"`          // winning cell must exceed this
}

// DefaultParams returns 1 degree / unit offset buckets, a 5 unit voting
// distance and a 1.5 vote floor.
func DefaultParams() Params {
	return Params{
		AngleResolution:   1,
		OffsetResolution:  1,
		DistanceThreshold: 5,
		MinVotes:          1.5,
	}
}

// Validate rejects non-positive resolutions and thresholds.
func (p Params) Validate() error {
	switch {
	case p.AngleResolution <= 0 || p.AngleResolution > 178:
		return fmt.Errorf("hough angle resolution %v out of (0, 178]: %w", p.AngleResolution, model.ErrInvalidConfiguration)
	case p.OffsetResolution <= 0:
		return fmt.Errorf("hough offset resolution %v must be positive: %w", p.OffsetResolution, model.ErrInvalidConfiguration)
	case p.DistanceThreshold <= 0:
		return fmt.Errorf("hough distance threshold %v must be positive: %w", p.DistanceThreshold, model.ErrInvalidConfiguration)
	case p.MinVotes < 0:
		return fmt.Errorf("hough min votes %v must not be negative: %w", p.MinVotes, model.ErrInvalidConfiguration)
	}
	return nil
}

// Fit is the winning cell converted back to slope/intercept form.
type Fit struct {
	Theta     float64 // radians
	Rho       float64
	Votes     float64
	Slope     float64
	Intercept float64
}

// Fitter owns a dense accumulator that is reused across calls. A Fitter is
// not safe for concurrent use; give each worker its own.
type Fitter struct {
	params Params
	thetas []float64
	cos    []float64
	sin    []float64

	acc     []float64
	touched []int // flat accumulator cell hit per angle, -1 when none
}

// NewFitter precomputes the angle table for p.
func NewFitter(p Params) (*Fitter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := int(math.Ceil(178/p.AngleResolution - 1e-9))
	f := &Fitter{
		params:  p,
		thetas:  make([]float64, n),
		cos:     make([]float64, n),
		sin:     make([]float64, n),
		touched: make([]int, n),
	}
	for k := 0; k < n; k++ {
		th := (-89 + float64(k)*p.AngleResolution) * math.Pi / 180
		f.thetas[k] = th
		f.cos[k] = math.Cos(th)
		f.sin[k] = math.Sin(th)
	}
	return f, nil
}

// Angles returns the number of angle buckets.
func (f *Fitter) Angles() int { return len(f.thetas) }

// Fit returns the best line through anchor voted for by the points strictly
// to its right. Points at or left of the anchor are ignored. It returns
// ErrNoLine when the best cell does not exceed MinVotes and
// model.ErrDegenerateLine when the winner is a vertical line.
func (f *Fitter) Fit(anchor Point, points []Point) (Fit, error) {
	maxDX, maxDY := 0.0, 0.0
	future := 0
	for _, p := range points {
		if p.X <= anchor.X {
			continue
		}
		future++
		maxDX = math.Max(maxDX, p.X-anchor.X)
		maxDY = math.Max(maxDY, math.Abs(p.Y-anchor.Y))
	}
	if future == 0 {
		return Fit{}, ErrNoLine
	}

	res := f.params.OffsetResolution
	maxRho := math.Trunc(math.Hypot(maxDX, maxDY))
	nRho := int(math.Ceil(2 * maxRho / res))
	if nRho < 1 {
		nRho = 1
	}
	nTheta := len(f.thetas)
	f.reserve(nRho * nTheta)

	thr := f.params.DistanceThreshold
	for k := 0; k < nTheta; k++ {
		c, s := f.cos[k], f.sin[k]
		rho0 := anchor.X*c + anchor.Y*s
		cell := f.nearestOffset(rho0, maxRho, nRho)*nTheta + k
		f.touched[k] = -1
		for _, p := range points {
			if p.X <= anchor.X {
				continue
			}
			d := math.Abs(p.X*c + p.Y*s - rho0)
			if d < thr {
				f.acc[cell] += 1 - d/thr
				f.touched[k] = cell
			}
		}
	}

	// Argmax in offset-major order; the first maximal cell wins ties.
	best := -1
	for _, cell := range f.touched {
		if cell < 0 {
			continue
		}
		if best < 0 || f.acc[cell] > f.acc[best] || (f.acc[cell] == f.acc[best] && cell < best) {
			best = cell
		}
	}
	if best < 0 {
		return Fit{}, ErrNoLine
	}
	votes := f.acc[best]
	f.clear()
	if votes <= f.params.MinVotes {
		return Fit{}, ErrNoLine
	}

	k := best % nTheta
	fit := Fit{
		Theta: f.thetas[k],
		Rho:   -maxRho + float64(best/nTheta)*res,
		Votes: votes,
	}
	if math.Abs(f.sin[k]) <= degenerateSin {
		return fit, fmt.Errorf("theta %.4f rad: %w", fit.Theta, model.ErrDegenerateLine)
	}
	fit.Slope = -f.cos[k] / f.sin[k]
	fit.Intercept = anchor.Y - fit.Slope*anchor.X
	return fit, nil
}

// nearestOffset picks the bucket closest to rho; the lower bucket wins exact
// halves and out-of-range values clamp to the edges.
func (f *Fitter) nearestOffset(rho, maxRho float64, nRho int) int {
	idx := int(math.Ceil((rho+maxRho)/f.params.OffsetResolution - 0.5))
	if idx < 0 {
		return 0
	}
	if idx >= nRho {
		return nRho - 1
	}
	return idx
}

func (f *Fitter) reserve(size int) {
	if cap(f.acc) < size {
		f.acc = make([]float64, size)
		return
	}
	f.acc = f.acc[:size]
}

// clear zeroes only the cells written by the last call.
func (f *Fitter) clear() {
	for _, cell := range f.touched {
		if cell >= 0 {
			f.acc[cell] = 0
		}
	}
}
