package stepping

import "github.com/san-kum/fieldtrace/internal/geometry"

// scheme is the construction-time description of an embedded RKF pair. The
// retry loop, error norm, step-size control and dense-output machinery all
// live once in the generic stepper; a scheme only contributes coefficients.
type scheme struct {
	name string
	// order of the higher-order solution, which drives step-size control.
	order int
	// coupling holds one row of stage-coupling coefficients per intermediate
	// stage; row i combines stage directions 0..i to place stage i+1.
	coupling [][]float64
	// weights combine the stage directions into the accepted displacement.
	weights []float64
	// errWeights combine stage directions into the per-step error estimate
	// (higher-order minus lower-order weights). A trailing entry beyond the
	// internal stages applies to the direction sampled at the step end.
	errWeights []float64
	// dense holds per-stage polynomial coefficients of the scheme's
	// continuous extension, one row per stage direction and one column per
	// power of the step fraction (starting at the linear term). A nil matrix
	// selects cubic Hermite interpolation from the step endpoints.
	dense [][]float64
}

// denseCoefs builds the interpolation coefficients for the most recently
// accepted step, such that the position at step fraction t is
// previousPosition + sum_j coefs[j]*t^(j+1).
func (s *scheme) denseCoefs(st *stepperState) []geometry.Vec3 {
	h := st.previousStepSize
	if s.dense != nil {
		coefs := make([]geometry.Vec3, len(s.dense[0]))
		for i, poly := range s.dense {
			k := st.intermediateDirections[i].Mul(h)
			for j, w := range poly {
				if w != 0 {
					coefs[j] = coefs[j].Add(k.Mul(w))
				}
			}
		}
		return coefs
	}

	// Cubic Hermite interpolant from the step endpoints and the field
	// directions there, matching position and direction on both ends.
	d := st.previousStepDisplacement
	f0 := st.previousDirection.Mul(h)
	f1 := st.direction.Mul(h)
	a3 := f0.Add(f1).Sub(d.Mul(2))
	a2 := d.Sub(f0).Sub(a3)
	return []geometry.Vec3{f0, a2, a3}
}

// interpolateDense evaluates the coefficient polynomial at a step fraction
// in (0, 1].
func interpolateDense(st *stepperState, coefs []geometry.Vec3, fraction float64) geometry.Point3 {
	position := st.previousPosition
	power := fraction
	for _, c := range coefs {
		position = position.Add(c.Mul(power))
		power *= fraction
	}
	return position
}

// Bogacki-Shampine 3(2) coefficients, including the cubic coefficients of
// its native continuous extension.
var rkf23Scheme = scheme{
	name:  "rkf23",
	order: 3,
	coupling: [][]float64{
		{1.0 / 2.0},
		{0, 3.0 / 4.0},
	},
	weights: []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
	// The error estimate uses the direction at the new position as a fourth
	// stage (first-same-as-last).
	errWeights: []float64{-5.0 / 72.0, 1.0 / 12.0, 1.0 / 9.0, -1.0 / 8.0},
	dense: [][]float64{
		{1, -4.0 / 3.0, 5.0 / 9.0},
		{0, 1, -2.0 / 3.0},
		{0, 4.0 / 3.0, -8.0 / 9.0},
		{0, -1, 1},
	},
}

// Fehlberg 4(5) coefficients. The pair has no standard continuous extension,
// so dense output falls back to Hermite interpolation.
var rkf45Scheme = scheme{
	name:  "rkf45",
	order: 5,
	coupling: [][]float64{
		{1.0 / 4.0},
		{3.0 / 32.0, 9.0 / 32.0},
		{1932.0 / 2197.0, -7200.0 / 2197.0, 7296.0 / 2197.0},
		{439.0 / 216.0, -8.0, 3680.0 / 513.0, -845.0 / 4104.0},
		{-8.0 / 27.0, 2.0, -3544.0 / 2565.0, 1859.0 / 4104.0, -11.0 / 40.0},
	},
	weights:    []float64{16.0 / 135.0, 0, 6656.0 / 12825.0, 28561.0 / 56430.0, -9.0 / 50.0, 2.0 / 55.0},
	errWeights: []float64{1.0 / 360.0, 0, -128.0 / 4275.0, -2197.0 / 75240.0, 1.0 / 50.0, 2.0 / 55.0},
}
