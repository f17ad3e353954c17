package diffusion

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/timelag/internal/permeation"
)

// minParallelNodes is the interior width below which a step runs serially.
const minParallelNodes = 4096

// Params describes one simulation.
type Params struct {
	D        float64 // diffusion coefficient, cm²/s
	CEq      float64 // upstream equilibrium concentration, cm³(STP)/cm³
	Length   float64 // membrane thickness, cm
	Duration float64 // total simulated time, s
	Dt       float64
	Dx       float64
}

// GridSize returns the number of spatial nodes and time steps.
func (p Params) GridSize() (nx, nt int) {
	return int(math.Floor(p.Length/p.Dx)) + 1, int(math.Floor(p.Duration/p.Dt)) + 1
}

// MaxStableDt is the largest time step the explicit scheme tolerates.
func (p Params) MaxStableDt() float64 {
	return p.Dx * p.Dx / (2 * p.D)
}

// Axes returns the time and position grids, both evenly spaced and ending
// exactly at Duration and Length.
func (p Params) Axes() (times, positions []float64) {
	nx, nt := p.GridSize()
	return linspace(0, p.Duration, nt), linspace(0, p.Length, nx)
}

// Validate checks the grid parameters and the stability condition.
func (p Params) Validate() error {
	if !(p.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", permeation.ErrInvalidParameter, p.Dt)
	}
	if !(p.Dx > 0) {
		return fmt.Errorf("%w: dx must be positive, got %g", permeation.ErrInvalidParameter, p.Dx)
	}
	if !(p.Length > 0) {
		return fmt.Errorf("%w: length must be positive, got %g", permeation.ErrInvalidParameter, p.Length)
	}
	if !(p.Duration >= 0) || math.IsInf(p.Duration, 0) {
		return fmt.Errorf("%w: duration must be finite and non-negative, got %g", permeation.ErrInvalidParameter, p.Duration)
	}
	if nx, _ := p.GridSize(); nx < 2 {
		return fmt.Errorf("%w: dx=%g leaves fewer than 2 nodes across L=%g", permeation.ErrInvalidParameter, p.Dx, p.Length)
	}
	if !(p.Dt <= p.MaxStableDt()) {
		return fmt.Errorf("%w: dt=%g exceeds dx²/(2D)=%g", permeation.ErrUnstable, p.Dt, p.MaxStableDt())
	}
	return nil
}

// Run integrates the diffusion equation and returns the full field.
func Run(ctx context.Context, p Params) (*Field, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	nx, nt := p.GridSize()
	times, positions := p.Axes()
	field := &Field{
		Params:        p,
		Times:         times,
		Positions:     positions,
		Concentration: make([][]float64, nt),
		Flux:          make([]float64, nt),
	}

	dtD, dx2 := p.Dt*p.D, p.Dx*p.Dx
	c := make([]float64, nx)

	for n := 0; n < nt; n++ {
		if n%1024 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		next := make([]float64, nx)
		copy(next, c)
		if n > 0 {
			step(c, next, dtD, dx2)
		}
		next[0] = p.CEq
		next[nx-1] = 0

		c = next
		field.Concentration[n] = c
		field.Flux[n] = -p.D * (c[nx-1] - c[nx-2]) / p.Dx
	}

	return field, nil
}

// step writes the interior update of prev into next.
func step(prev, next []float64, dtD, dx2 float64) {
	interior := len(prev) - 2
	if interior <= 0 {
		return
	}
	permeation.ParallelFor(interior, minParallelNodes, func(start, end int) {
		for i := start + 1; i <= end; i++ {
			next[i] = prev[i] + dtD*(prev[i+1]-2*prev[i]+prev[i-1])/dx2
		}
	})
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
