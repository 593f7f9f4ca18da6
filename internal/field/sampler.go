package field

import (
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Sampler adapts a Vector3 field to the sampling contract expected by the
// stepping package: interpolated lookup, periodic wrap resolution and the
// domain extents used for error normalization.
type Sampler struct {
	field *Vector3
}

// NewSampler wraps a vector field for use by steppers. The sampler is
// read-only and safe for concurrent use.
func NewSampler(f *Vector3) *Sampler {
	return &Sampler{field: f}
}

// Sample interpolates the field at the given position. ok is false when the
// position lies outside the grid domain.
func (s *Sampler) Sample(p geometry.Point3) (geometry.Vec3, bool) {
	return s.field.Interpolate(p)
}

// ResolveWrap maps an out-of-bounds position to its periodic counterpart.
func (s *Sampler) ResolveWrap(p geometry.Point3) (geometry.Point3, bool) {
	return s.field.Grid().WrapPoint(p)
}

// Extents returns the spatial extents of the field domain.
func (s *Sampler) Extents() geometry.Vec3 {
	return s.field.Grid().Extents()
}
