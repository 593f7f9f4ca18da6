// Package seeding produces starting positions for field line traces.
package seeding

import (
	"fmt"

	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Seeder yields the start positions for a set of traces.
type Seeder interface {
	Positions() []geometry.Point3
}

// RegularVolume seeds at the cell centers of a regular lattice spanning a
// sub-volume of the domain.
type RegularVolume struct {
	positions []geometry.Point3
}

// NewRegularVolume builds a volume seeder with shape[axis] points per axis
// between the given bounds.
func NewRegularVolume(shape [3]int, lowerBounds, upperBounds geometry.Point3) (*RegularVolume, error) {
	for a := 0; a < geometry.NumAxes; a++ {
		if shape[a] < 1 {
			return nil, fmt.Errorf("seed shape must be at least 1 along every axis, got %v", shape)
		}
		if lowerBounds[a] >= upperBounds[a] {
			return nil, fmt.Errorf("seed lower bound %g not below upper bound %g on axis %d",
				lowerBounds[a], upperBounds[a], a)
		}
	}

	// Points sit at cell centers, so a shape of 1 seeds the volume midpoint.
	var spacing geometry.Vec3
	for a := 0; a < geometry.NumAxes; a++ {
		spacing[a] = (upperBounds[a] - lowerBounds[a]) / float64(shape[a])
	}

	positions := make([]geometry.Point3, 0, shape[0]*shape[1]*shape[2])
	for k := 0; k < shape[geometry.Z]; k++ {
		for j := 0; j < shape[geometry.Y]; j++ {
			for i := 0; i < shape[geometry.X]; i++ {
				positions = append(positions, geometry.Point3{
					lowerBounds[geometry.X] + (float64(i)+0.5)*spacing[geometry.X],
					lowerBounds[geometry.Y] + (float64(j)+0.5)*spacing[geometry.Y],
					lowerBounds[geometry.Z] + (float64(k)+0.5)*spacing[geometry.Z],
				})
			}
		}
	}
	return &RegularVolume{positions: positions}, nil
}

func (s *RegularVolume) Positions() []geometry.Point3 { return s.positions }

// RegularSlice seeds a 2D lattice on an axis-aligned plane through the
// domain.
type RegularSlice struct {
	positions []geometry.Point3
}

// NewRegularSlice builds a slice seeder across the given axis at the given
// coordinate, with shape[0]×shape[1] points over the remaining two axes in
// cyclic order.
func NewRegularSlice(axis int, coord float64, shape [2]int, lowerBounds, upperBounds geometry.Point3) (*RegularSlice, error) {
	if axis < 0 || axis >= geometry.NumAxes {
		return nil, fmt.Errorf("slice axis must be 0, 1 or 2, got %d", axis)
	}
	if shape[0] < 1 || shape[1] < 1 {
		return nil, fmt.Errorf("slice shape must be at least 1 along both axes, got %v", shape)
	}
	if coord < lowerBounds[axis] || coord > upperBounds[axis] {
		return nil, fmt.Errorf("slice coordinate %g outside axis %d bounds [%g, %g]",
			coord, axis, lowerBounds[axis], upperBounds[axis])
	}

	u := (axis + 1) % geometry.NumAxes
	v := (axis + 2) % geometry.NumAxes
	for _, a := range []int{u, v} {
		if lowerBounds[a] >= upperBounds[a] {
			return nil, fmt.Errorf("seed lower bound %g not below upper bound %g on axis %d",
				lowerBounds[a], upperBounds[a], a)
		}
	}

	uSpacing := (upperBounds[u] - lowerBounds[u]) / float64(shape[0])
	vSpacing := (upperBounds[v] - lowerBounds[v]) / float64(shape[1])

	positions := make([]geometry.Point3, 0, shape[0]*shape[1])
	for jv := 0; jv < shape[1]; jv++ {
		for iu := 0; iu < shape[0]; iu++ {
			var p geometry.Point3
			p[axis] = coord
			p[u] = lowerBounds[u] + (float64(iu)+0.5)*uSpacing
			p[v] = lowerBounds[v] + (float64(jv)+0.5)*vSpacing
			positions = append(positions, p)
		}
	}
	return &RegularSlice{positions: positions}, nil
}

func (s *RegularSlice) Positions() []geometry.Point3 { return s.positions }

// Manual seeds at an explicit list of positions.
type Manual struct {
	positions []geometry.Point3
}

// NewManual builds a seeder over the given positions.
func NewManual(positions []geometry.Point3) (*Manual, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("manual seeder requires at least one position")
	}
	copied := make([]geometry.Point3, len(positions))
	copy(copied, positions)
	return &Manual{positions: copied}, nil
}

func (s *Manual) Positions() []geometry.Point3 { return s.positions }

// AxisIndex parses an axis name ("x", "y" or "z") into its index.
func AxisIndex(name string) (int, error) {
	switch name {
	case "x":
		return geometry.X, nil
	case "y":
		return geometry.Y, nil
	case "z":
		return geometry.Z, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (expected x, y or z)", name)
	}
}
