// Package field provides scalar and vector fields sampled on regular grids,
// together with trilinear interpolation and analytic field models.
package field

import (
	"fmt"

	"github.com/san-kum/fieldtrace/internal/geometry"
	"github.com/san-kum/fieldtrace/internal/grid"
)

// Vector3 holds one vector value per grid node, in node-index order.
type Vector3 struct {
	name   string
	grid   grid.Regular3
	values []geometry.Vec3
}

// Scalar3 holds one scalar value per grid node, in node-index order.
type Scalar3 struct {
	name   string
	grid   grid.Regular3
	values []float64
}

// NewVector3 wraps node values into a field on the given grid.
func NewVector3(name string, g grid.Regular3, values []geometry.Vec3) (*Vector3, error) {
	if len(values) != g.NumNodes() {
		return nil, fmt.Errorf("field %q: got %d values for %d grid nodes", name, len(values), g.NumNodes())
	}
	return &Vector3{name: name, grid: g, values: values}, nil
}

// NewScalar3 wraps node values into a field on the given grid.
func NewScalar3(name string, g grid.Regular3, values []float64) (*Scalar3, error) {
	if len(values) != g.NumNodes() {
		return nil, fmt.Errorf("field %q: got %d values for %d grid nodes", name, len(values), g.NumNodes())
	}
	return &Scalar3{name: name, grid: g, values: values}, nil
}

func (f *Vector3) Name() string        { return f.name }
func (f *Vector3) Grid() grid.Regular3 { return f.grid }

func (f *Scalar3) Name() string        { return f.name }
func (f *Scalar3) Grid() grid.Regular3 { return f.grid }

// Value returns the stored vector at lattice node (i, j, k).
func (f *Vector3) Value(i, j, k int) geometry.Vec3 {
	return f.values[f.grid.NodeIndex(i, j, k)]
}

// Value returns the stored scalar at lattice node (i, j, k).
func (f *Scalar3) Value(i, j, k int) float64 {
	return f.values[f.grid.NodeIndex(i, j, k)]
}

// interpWeights returns the containing cell and the per-axis interpolation
// fractions of p within it.
func interpWeights(g grid.Regular3, p geometry.Point3) (cell [3]int, frac geometry.Vec3, ok bool) {
	cell, ok = g.CellCoords(p)
	if !ok {
		return cell, frac, false
	}
	lower := g.LowerBounds()
	spacing := g.Spacing()
	for a := 0; a < geometry.NumAxes; a++ {
		frac[a] = (p[a] - (lower[a] + float64(cell[a])*spacing[a])) / spacing[a]
	}
	return cell, frac, true
}

// Interpolate samples the field at an arbitrary position using trilinear
// interpolation. ok is false if the position is outside the grid domain.
func (f *Vector3) Interpolate(p geometry.Point3) (geometry.Vec3, bool) {
	cell, frac, ok := interpWeights(f.grid, p)
	if !ok {
		return geometry.Vec3{}, false
	}
	var result geometry.Vec3
	for dk := 0; dk < 2; dk++ {
		for dj := 0; dj < 2; dj++ {
			for di := 0; di < 2; di++ {
				w := cornerWeight(frac, di, dj, dk)
				if w == 0 {
					continue
				}
				v := f.Value(cell[0]+di, cell[1]+dj, cell[2]+dk)
				result = result.Add(v.Mul(w))
			}
		}
	}
	return result, true
}

// Interpolate samples the field at an arbitrary position using trilinear
// interpolation. ok is false if the position is outside the grid domain.
func (f *Scalar3) Interpolate(p geometry.Point3) (float64, bool) {
	cell, frac, ok := interpWeights(f.grid, p)
	if !ok {
		return 0, false
	}
	result := 0.0
	for dk := 0; dk < 2; dk++ {
		for dj := 0; dj < 2; dj++ {
			for di := 0; di < 2; di++ {
				w := cornerWeight(frac, di, dj, dk)
				if w == 0 {
					continue
				}
				result += w * f.Value(cell[0]+di, cell[1]+dj, cell[2]+dk)
			}
		}
	}
	return result, true
}

func cornerWeight(frac geometry.Vec3, di, dj, dk int) float64 {
	w := 1.0
	for a, d := range [3]int{di, dj, dk} {
		if d == 1 {
			w *= frac[a]
		} else {
			w *= 1 - frac[a]
		}
	}
	return w
}

// Magnitudes derives a scalar field holding the vector norm at every node.
func (f *Vector3) Magnitudes() *Scalar3 {
	values := make([]float64, len(f.values))
	for i, v := range f.values {
		values[i] = v.Len()
	}
	return &Scalar3{name: f.name + "_magnitude", grid: f.grid, values: values}
}
