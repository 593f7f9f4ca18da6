package fltrace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// cubeSampler serves an analytic field inside the unit cube without
// periodic boundaries.
type cubeSampler struct {
	value func(geometry.Point3) geometry.Vec3
}

func (s *cubeSampler) Sample(p geometry.Point3) (geometry.Vec3, bool) {
	for a := 0; a < geometry.NumAxes; a++ {
		if p[a] < 0 || p[a] > 1 {
			return geometry.Vec3{}, false
		}
	}
	return s.value(p), true
}

func (s *cubeSampler) ResolveWrap(p geometry.Point3) (geometry.Point3, bool) {
	return p, false
}

func (s *cubeSampler) Extents() geometry.Vec3 { return geometry.Vec3{1, 1, 1} }

func uniformCube(dir geometry.Vec3) *cubeSampler {
	return &cubeSampler{value: func(geometry.Point3) geometry.Vec3 { return dir }}
}

var _ = Describe("Trace", func() {
	var factory *stepping.RKFFactory

	BeforeEach(func() {
		var err error
		factory, err = stepping.NewRKF45Factory(stepping.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	It("follows a uniform field out of the domain along a straight ray", func() {
		sampler := uniformCube(geometry.Vec3{0, 0, 1})
		line := fltrace.NewFieldLine(0)

		cause, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseSame, geometry.Point3{0.5, 0.5, 0.1}, line.OnPoint)

		Expect(ok).To(BeTrue())
		Expect(cause).To(Equal(stepping.CauseOutOfBounds))
		Expect(line.NumPoints()).To(BeNumerically(">", 1))
		for _, p := range line.Positions {
			Expect(p[geometry.X]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(p[geometry.Y]).To(BeNumerically("~", 0.5, 1e-9))
		}
	})

	It("produces no line for a seed in a null field", func() {
		sampler := uniformCube(geometry.Vec3{})
		line := fltrace.NewFieldLine(0)

		cause, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseSame, geometry.Point3{0.5, 0.5, 0.5}, line.OnPoint)

		Expect(ok).To(BeFalse())
		Expect(cause).To(Equal(stepping.CauseNull))
		Expect(line.NumPoints()).To(BeZero())
	})

	It("produces no line for a seed outside the domain", func() {
		sampler := uniformCube(geometry.Vec3{1, 0, 0})

		_, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseSame, geometry.Point3{3, 0.5, 0.5}, fltrace.NewFieldLine(0).OnPoint)

		Expect(ok).To(BeFalse())
	})

	It("keeps a degenerate single-point line when the callback stops placement", func() {
		sampler := uniformCube(geometry.Vec3{1, 0, 0})
		line := fltrace.NewFieldLine(1)

		cause, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseSame, geometry.Point3{0.5, 0.5, 0.5}, line.OnPoint)

		Expect(ok).To(BeTrue())
		Expect(cause).To(Equal(stepping.CauseStoppedByCallback))
		Expect(line.NumPoints()).To(Equal(1))
	})

	It("stops with exactly five points when the callback terminates on the fifth", func() {
		sampler := uniformCube(geometry.Vec3{0, 1, 0})
		line := fltrace.NewFieldLine(5)

		cause, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseSame, geometry.Point3{0.5, 0.1, 0.5}, line.OnPoint)

		Expect(ok).To(BeTrue())
		Expect(cause).To(Equal(stepping.CauseStoppedByCallback))
		Expect(line.NumPoints()).To(Equal(5))
	})

	It("traces the reverse sense away from the field direction", func() {
		sampler := uniformCube(geometry.Vec3{0, 1, 0})
		line := fltrace.NewFieldLine(10)

		_, ok := fltrace.Trace(factory.Produce(), sampler, stepping.SenseOpposite, geometry.Point3{0.5, 0.9, 0.5}, line.OnPoint)

		Expect(ok).To(BeTrue())
		last := line.Positions[line.NumPoints()-1]
		Expect(last[geometry.Y]).To(BeNumerically("<", 0.9))
	})
})

var _ = Describe("FieldLine", func() {
	It("measures chord length along its positions", func() {
		line := fltrace.NewFieldLine(0)
		for i := 0; i <= 10; i++ {
			line.OnPoint(geometry.Point3{float64(i) * 0.1, 0, 0})
		}
		Expect(line.Length()).To(BeNumerically("~", 1.0, 1e-12))
	})
})

var _ = Describe("TraceSet", func() {
	It("traces every seed, dropping void results and tallying causes", func() {
		sampler := uniformCube(geometry.Vec3{0, 0, 1})
		factory, err := stepping.NewRKF45Factory(stepping.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		seeds := []geometry.Point3{
			{0.25, 0.25, 0.1},
			{0.75, 0.75, 0.1},
			{5, 5, 5}, // outside the domain, no wrap
		}
		set := fltrace.TraceSet(zerolog.Nop(), sampler, factory, seeds, fltrace.SetConfig{Workers: 2}, nil)

		Expect(set.NumLines()).To(Equal(2))
		Expect(set.NumVoid).To(Equal(1))
		Expect(set.Causes[stepping.CauseOutOfBounds]).To(Equal(2))
		Expect(set.NumPoints()).To(Equal(set.Lines[0].NumPoints() + set.Lines[1].NumPoints()))
	})

	It("reports progress for every seed and closes the channel", func() {
		sampler := uniformCube(geometry.Vec3{0, 0, 1})
		factory, err := stepping.NewRKF45Factory(stepping.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		seeds := []geometry.Point3{{0.3, 0.3, 0.2}, {0.6, 0.6, 0.2}}
		progress := make(chan fltrace.Progress, len(seeds))

		done := make(chan struct{})
		var events []fltrace.Progress
		go func() {
			defer close(done)
			for ev := range progress {
				events = append(events, ev)
			}
		}()

		fltrace.TraceSet(zerolog.Nop(), sampler, factory, seeds, fltrace.SetConfig{Workers: 1}, progress)
		<-done

		Expect(events).To(HaveLen(2))
		Expect(events[len(events)-1].Done).To(Equal(2))
	})

	It("is deterministic for identical inputs", func() {
		sampler := &cubeSampler{value: func(p geometry.Point3) geometry.Vec3 {
			return geometry.Vec3{-(p[geometry.Y] - 0.5), p[geometry.X] - 0.5, 1e-2}
		}}
		factory, err := stepping.NewRKF45Factory(stepping.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		seeds := []geometry.Point3{{0.8, 0.5, 0.2}, {0.2, 0.5, 0.2}}
		cfg := fltrace.SetConfig{Workers: 2, MaxPointsPerLine: 200}

		first := fltrace.TraceSet(zerolog.Nop(), sampler, factory, seeds, cfg, nil)
		second := fltrace.TraceSet(zerolog.Nop(), sampler, factory, seeds, cfg, nil)

		Expect(second.NumLines()).To(Equal(first.NumLines()))
		for i := range first.Lines {
			Expect(second.Lines[i].Positions).To(Equal(first.Lines[i].Positions))
		}
	})
})

var _ = Describe("Stopping causes", func() {
	It("stringify for diagnostics", func() {
		Expect(stepping.CauseSink.String()).To(Equal("sink"))
		Expect(stepping.CauseStoppedByCallback.String()).To(Equal("stopped by callback"))
	})
})
