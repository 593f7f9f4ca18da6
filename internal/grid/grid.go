// Package grid implements regular 3D grids with optional periodic boundaries.
package grid

import (
	"fmt"
	"math"

	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Regular3 is a 3D grid with uniform node spacing along each axis. Nodes sit on
// an n-point lattice spanning [lower, upper] inclusively along every axis.
type Regular3 struct {
	shape    [3]int
	lower    geometry.Point3
	upper    geometry.Point3
	extents  geometry.Vec3
	spacing  geometry.Vec3
	periodic [3]bool
}

// NewRegular3 builds a grid from node counts and domain bounds.
func NewRegular3(shape [3]int, lower, upper geometry.Point3, periodic [3]bool) (Regular3, error) {
	for a := 0; a < geometry.NumAxes; a++ {
		if shape[a] < 2 {
			return Regular3{}, fmt.Errorf("grid shape must be at least 2 along every axis, got %d on axis %d", shape[a], a)
		}
		if lower[a] >= upper[a] {
			return Regular3{}, fmt.Errorf("grid lower bound must be below upper bound on axis %d (%g >= %g)", a, lower[a], upper[a])
		}
	}

	extents := upper.Sub(lower)
	var spacing geometry.Vec3
	for a := 0; a < geometry.NumAxes; a++ {
		spacing[a] = extents[a] / float64(shape[a]-1)
	}

	return Regular3{
		shape:    shape,
		lower:    lower,
		upper:    upper,
		extents:  extents,
		spacing:  spacing,
		periodic: periodic,
	}, nil
}

func (g Regular3) Shape() [3]int                { return g.shape }
func (g Regular3) LowerBounds() geometry.Point3 { return g.lower }
func (g Regular3) UpperBounds() geometry.Point3 { return g.upper }
func (g Regular3) Extents() geometry.Vec3       { return g.extents }
func (g Regular3) Spacing() geometry.Vec3       { return g.spacing }
func (g Regular3) IsPeriodic(axis int) bool     { return g.periodic[axis] }

// NumNodes returns the total number of lattice nodes.
func (g Regular3) NumNodes() int {
	return g.shape[0] * g.shape[1] * g.shape[2]
}

// NodeIndex maps lattice coordinates to the flat node ordering used by fields.
func (g Regular3) NodeIndex(i, j, k int) int {
	return (k*g.shape[geometry.Y]+j)*g.shape[geometry.X] + i
}

// NodePosition returns the position of the lattice node (i, j, k).
func (g Regular3) NodePosition(i, j, k int) geometry.Point3 {
	return geometry.Point3{
		g.lower[geometry.X] + float64(i)*g.spacing[geometry.X],
		g.lower[geometry.Y] + float64(j)*g.spacing[geometry.Y],
		g.lower[geometry.Z] + float64(k)*g.spacing[geometry.Z],
	}
}

// Contains reports whether the point lies inside the domain bounds.
func (g Regular3) Contains(p geometry.Point3) bool {
	for a := 0; a < geometry.NumAxes; a++ {
		if p[a] < g.lower[a] || p[a] > g.upper[a] {
			return false
		}
	}
	return true
}

// WrapPoint maps a point outside the domain to its periodic counterpart.
// Coordinates on non-periodic axes are left untouched; if any of them is out
// of bounds no wrapped point exists and ok is false.
func (g Regular3) WrapPoint(p geometry.Point3) (geometry.Point3, bool) {
	wrapped := p
	for a := 0; a < geometry.NumAxes; a++ {
		if p[a] >= g.lower[a] && p[a] <= g.upper[a] {
			continue
		}
		if !g.periodic[a] {
			return p, false
		}
		offset := math.Mod(p[a]-g.lower[a], g.extents[a])
		if offset < 0 {
			offset += g.extents[a]
		}
		wrapped[a] = g.lower[a] + offset
	}
	return wrapped, true
}

// CellCoords returns the lattice cell containing the point, clamped so that
// points on the upper boundary fall in the last cell.
func (g Regular3) CellCoords(p geometry.Point3) ([3]int, bool) {
	if !g.Contains(p) {
		return [3]int{}, false
	}
	var c [3]int
	for a := 0; a < geometry.NumAxes; a++ {
		i := int((p[a] - g.lower[a]) / g.spacing[a])
		if i > g.shape[a]-2 {
			i = g.shape[a] - 2
		}
		c[a] = i
	}
	return c, true
}

// PointInCell reports whether the point falls inside the given cell.
func (g Regular3) PointInCell(p geometry.Point3, cell [3]int) bool {
	c, ok := g.CellCoords(p)
	return ok && c == cell
}
