package oracle

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/katalvlaran/dspace/signature"
)

// Metrics holds the collectors used by an instrumented engine.
type Metrics struct {
	// Calls counts oracle calls by operation.
	Calls *prometheus.CounterVec
	// Errors counts failed oracle calls by operation.
	Errors *prometheus.CounterVec
	// Duration tracks oracle call latency by operation.
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the oracle collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dspace_oracle_calls_total",
			Help: "Total oracle calls by operation",
		}, []string{"op"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dspace_oracle_errors_total",
			Help: "Total failed oracle calls by operation",
		}, []string{"op"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dspace_oracle_call_duration_seconds",
			Help:    "Oracle call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	m.Calls.WithLabelValues(op).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}

// Instrument wraps e so that every engine, system and case call is counted
// and timed on reg. Handles returned by the wrapper are wrapped as well.
func Instrument(e Engine, reg prometheus.Registerer) Engine {
	return InstrumentWith(e, NewMetrics(reg))
}

// InstrumentWith is Instrument with caller-owned collectors.
func InstrumentWith(e Engine, m *Metrics) Engine {
	return &instrumentedEngine{next: e, m: m}
}

type instrumentedEngine struct {
	next Engine
	m    *Metrics
}

func (e *instrumentedEngine) NewSystem(ctx context.Context, def Definition) (System, error) {
	start := time.Now()
	s, err := e.next.NewSystem(ctx, def)
	e.m.observe("new_system", start, err)

	return e.wrapSystem(s, err)
}

func (e *instrumentedEngine) DecodeSystem(ctx context.Context, blob []byte) (System, error) {
	start := time.Now()
	s, err := e.next.DecodeSystem(ctx, blob)
	e.m.observe("decode_system", start, err)

	return e.wrapSystem(s, err)
}

func (e *instrumentedEngine) DecodeCase(ctx context.Context, blob []byte) (Case, error) {
	start := time.Now()
	c, err := e.next.DecodeCase(ctx, blob)
	e.m.observe("decode_case", start, err)

	return e.wrapCase(c, err)
}

func (e *instrumentedEngine) Intersect(ctx context.Context, members []Case, slice []string, box Box, strict bool) (bool, error) {
	start := time.Now()
	ok, err := e.next.Intersect(ctx, unwrapAll(members), slice, box, strict)
	e.m.observe("intersect", start, err)

	return ok, err
}

func (e *instrumentedEngine) IntersectionPoint(ctx context.Context, members []Case, slice []string, box Box, obj *Objective, strict bool) (Point, error) {
	start := time.Now()
	p, err := e.next.IntersectionPoint(ctx, unwrapAll(members), slice, box, obj, strict)
	e.m.observe("intersection_point", start, err)

	return p, err
}

func (e *instrumentedEngine) wrapSystem(s System, err error) (System, error) {
	if err != nil {
		return nil, err
	}

	return &instrumentedSystem{System: s, m: e.m}, nil
}

func (e *instrumentedEngine) wrapCase(c Case, err error) (Case, error) {
	if err != nil {
		return nil, err
	}

	return &instrumentedCase{Case: c, m: e.m}, nil
}

func unwrapAll(members []Case) []Case {
	out := make([]Case, len(members))
	for i, c := range members {
		if ic, ok := c.(*instrumentedCase); ok {
			c = ic.Case
		}
		out[i] = c
	}

	return out
}

// instrumentedSystem times the calls that may reach the engine.
// Cheap accessors are promoted from the embedded System.
type instrumentedSystem struct {
	System
	m *Metrics
}

func (s *instrumentedSystem) Case(ctx context.Context, number uint64) (Case, error) {
	start := time.Now()
	c, err := s.System.Case(ctx, number)
	s.m.observe("case", start, err)
	if err != nil {
		return nil, err
	}

	return &instrumentedCase{Case: c, m: s.m}, nil
}

func (s *instrumentedSystem) CaseNumber(sig signature.Signature) (uint64, error) {
	start := time.Now()
	n, err := s.System.CaseNumber(sig)
	s.m.observe("case_number", start, err)

	return n, err
}

type instrumentedCase struct {
	Case
	m *Metrics
}

func (c *instrumentedCase) wrap(op string, start time.Time, next Case, err error) (Case, error) {
	c.m.observe(op, start, err)
	if err != nil {
		return nil, err
	}

	return &instrumentedCase{Case: next, m: c.m}, nil
}

func (c *instrumentedCase) Subcase(ctx context.Context, i int) (Case, error) {
	start := time.Now()
	next, err := c.Case.Subcase(ctx, i)

	return c.wrap("subcase", start, next, err)
}

func (c *instrumentedCase) Constrain(ctx context.Context, constraints []string) (Case, error) {
	start := time.Now()
	next, err := c.Case.Constrain(ctx, constraints)

	return c.wrap("constrain", start, next, err)
}

func (c *instrumentedCase) Clone() (Case, error) {
	start := time.Now()
	next, err := c.Case.Clone()

	return c.wrap("clone", start, next, err)
}

func (c *instrumentedCase) Feasible(ctx context.Context, box Box, strict bool) (bool, error) {
	start := time.Now()
	ok, err := c.Case.Feasible(ctx, box, strict)
	c.m.observe("feasible", start, err)

	return ok, err
}

func (c *instrumentedCase) ValidPoint(ctx context.Context, box Box, obj *Objective) (Point, error) {
	start := time.Now()
	p, err := c.Case.ValidPoint(ctx, box, obj)
	c.m.observe("valid_point", start, err)

	return p, err
}

func (c *instrumentedCase) BoundingRange(ctx context.Context, variable string, box Box) (float64, float64, error) {
	start := time.Now()
	lo, hi, err := c.Case.BoundingRange(ctx, variable, box)
	c.m.observe("bounding_range", start, err)

	return lo, hi, err
}

func (c *instrumentedCase) Vertices(ctx context.Context, box Box, vars []string) ([][]float64, error) {
	start := time.Now()
	v, err := c.Case.Vertices(ctx, box, vars)
	c.m.observe("vertices", start, err)

	return v, err
}

func (c *instrumentedCase) SteadyState(ctx context.Context, p Point) (Point, error) {
	start := time.Now()
	out, err := c.Case.SteadyState(ctx, p)
	c.m.observe("steady_state", start, err)

	return out, err
}

func (c *instrumentedCase) PositiveRoots(ctx context.Context, p Point) (int, error) {
	start := time.Now()
	n, err := c.Case.PositiveRoots(ctx, p)
	c.m.observe("positive_roots", start, err)

	return n, err
}
