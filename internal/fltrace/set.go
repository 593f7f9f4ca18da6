package fltrace

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// SetConfig controls how a set of field lines is traced.
type SetConfig struct {
	// Sense selects tracing with or against the field.
	Sense stepping.Sense
	// Workers bounds the number of concurrent traces; zero or below means
	// one per CPU.
	Workers int
	// MaxPointsPerLine caps each traced line; zero means unlimited.
	MaxPointsPerLine int
}

// Progress reports completion of one seed during set tracing.
type Progress struct {
	Done  int
	Total int
	Cause stepping.StoppingCause
}

// FieldLineSet is a collection of traced field lines. Void traces (seeds
// that produced no line) are dropped and only counted.
type FieldLineSet struct {
	Lines   []*FieldLine
	NumVoid int
	// Causes tallies terminated lines by stopping cause.
	Causes map[stepping.StoppingCause]int
}

// NumLines returns the number of traced (non-void) lines.
func (s *FieldLineSet) NumLines() int { return len(s.Lines) }

// NumPoints returns the total number of points over all lines.
func (s *FieldLineSet) NumPoints() int {
	n := 0
	for _, l := range s.Lines {
		n += l.NumPoints()
	}
	return n
}

// TotalLength sums the chord lengths of all lines.
func (s *FieldLineSet) TotalLength() float64 {
	length := 0.0
	for _, l := range s.Lines {
		length += l.Length()
	}
	return length
}

// TraceSet traces one field line per seed, running up to cfg.Workers traces
// concurrently. Each trace uses a fresh stepper from the factory; the
// sampler is shared read-only. Results keep seed order. The optional
// progress channel receives one event per finished seed and is closed when
// all seeds are done.
func TraceSet(log zerolog.Logger, sampler stepping.Sampler, factory stepping.Factory, seeds []geometry.Point3, cfg SetConfig, progress chan<- Progress) *FieldLineSet {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	lines := make([]*FieldLine, len(seeds))

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0
	sem := make(chan struct{}, workers)

	for i, seed := range seeds {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, start geometry.Point3) {
			defer wg.Done()
			defer func() { <-sem }()

			line := NewFieldLine(cfg.MaxPointsPerLine)
			cause, ok := Trace(factory.Produce(), sampler, cfg.Sense, start, line.OnPoint)
			if ok {
				line.Cause = cause
				lines[idx] = line
			}

			log.Debug().
				Int("seed", idx).
				Stringer("cause", cause).
				Bool("void", !ok).
				Int("points", line.NumPoints()).
				Msg("traced field line")

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			if progress != nil {
				progress <- Progress{Done: current, Total: len(seeds), Cause: cause}
			}
		}(i, seed)
	}

	wg.Wait()
	if progress != nil {
		close(progress)
	}

	set := &FieldLineSet{Causes: make(map[stepping.StoppingCause]int)}
	for _, line := range lines {
		if line == nil {
			set.NumVoid++
			continue
		}
		set.Lines = append(set.Lines, line)
		set.Causes[line.Cause]++
	}

	log.Info().
		Int("seeds", len(seeds)).
		Int("lines", set.NumLines()).
		Int("void", set.NumVoid).
		Int("points", set.NumPoints()).
		Msg("finished tracing field line set")

	return set
}
