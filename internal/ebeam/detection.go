package ebeam

import (
	"fmt"

	"github.com/san-kum/fieldtrace/internal/field"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// SiteDetector finds acceleration sites by thresholding a scalar field at
// the grid nodes.
type SiteDetector struct {
	// Threshold is the minimum field value marking a node as a site.
	Threshold float64
}

// DetectSites returns the node positions where the field value reaches the
// threshold.
func (d SiteDetector) DetectSites(f *field.Scalar3) ([]geometry.Point3, error) {
	if f == nil {
		return nil, fmt.Errorf("site detection requires a scalar field")
	}
	g := f.Grid()
	shape := g.Shape()

	var sites []geometry.Point3
	for k := 0; k < shape[geometry.Z]; k++ {
		for j := 0; j < shape[geometry.Y]; j++ {
			for i := 0; i < shape[geometry.X]; i++ {
				if f.Value(i, j, k) >= d.Threshold {
					sites = append(sites, g.NodePosition(i, j, k))
				}
			}
		}
	}
	return sites, nil
}
