package field

import (
	"fmt"
	"math"

	"github.com/san-kum/fieldtrace/internal/geometry"
	"github.com/san-kum/fieldtrace/internal/grid"
)

// Model evaluates an analytic vector field at a position. Models stand in for
// snapshot data when exploring tracer behavior.
type Model func(p geometry.Point3) geometry.Vec3

// Uniform returns a homogeneous field with the given vector value.
func Uniform(v geometry.Vec3) Model {
	return func(geometry.Point3) geometry.Vec3 { return v }
}

// Dipole returns the field of a magnetic dipole with moment m placed at
// center. The singular point is regularized below a small radius.
func Dipole(center geometry.Point3, m geometry.Vec3) Model {
	const minRadius = 1e-6
	return func(p geometry.Point3) geometry.Vec3 {
		r := p.Sub(center)
		radius := r.Len()
		if radius < minRadius {
			radius = minRadius
		}
		rHat := r.Mul(1 / radius)
		term := rHat.Mul(3 * m.Dot(rHat)).Sub(m)
		return term.Mul(1 / (radius * radius * radius))
	}
}

// ABCFlow returns the Arnold-Beltrami-Childress flow field, a standard
// testbed for chaotic field-line behavior.
func ABCFlow(a, b, c float64) Model {
	return func(p geometry.Point3) geometry.Vec3 {
		return geometry.Vec3{
			a*math.Sin(p[geometry.Z]) + c*math.Cos(p[geometry.Y]),
			b*math.Sin(p[geometry.X]) + a*math.Cos(p[geometry.Z]),
			c*math.Sin(p[geometry.Y]) + b*math.Cos(p[geometry.X]),
		}
	}
}

// NewModel looks up an analytic model by name using its default parameters.
func NewModel(name string, g grid.Regular3) (Model, error) {
	center := g.LowerBounds().Add(g.Extents().Mul(0.5))
	switch name {
	case "uniform":
		return Uniform(geometry.Vec3{1, 0, 0}), nil
	case "dipole":
		return Dipole(center, geometry.Vec3{0, 0, 1}), nil
	case "abcflow":
		return ABCFlow(1, math.Sqrt(2.0/3.0), math.Sqrt(1.0/3.0)), nil
	default:
		return nil, fmt.Errorf("unknown field model %q (available: uniform, dipole, abcflow)", name)
	}
}

// Evaluate samples a model onto every node of the grid, producing a field
// that can be traced like snapshot data.
func Evaluate(name string, model Model, g grid.Regular3) *Vector3 {
	shape := g.Shape()
	values := make([]geometry.Vec3, g.NumNodes())
	for k := 0; k < shape[geometry.Z]; k++ {
		for j := 0; j < shape[geometry.Y]; j++ {
			for i := 0; i < shape[geometry.X]; i++ {
				values[g.NodeIndex(i, j, k)] = model(g.NodePosition(i, j, k))
			}
		}
	}
	return &Vector3{name: name, grid: g, values: values}
}
