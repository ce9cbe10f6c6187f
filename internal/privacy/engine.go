// Package privacy adds calibrated Laplace noise to bounded metric bundles.
// Epsilon handling is deliberately forgiving: malformed values are coerced
// into the policy window instead of failing a collection run.
package privacy

import (
	"context"
	"log/slog"
	"math"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Global epsilon bounds. Policy can tighten these, never widen them.
const (
	GlobalEpsilonFloor   = 1e-3
	GlobalEpsilonCeiling = 10.0
)

// Policy is the deployment's epsilon window.
type Policy struct {
	EpsilonFloor   float64
	EpsilonCeiling float64
	EpsilonDefault float64
}

// DefaultPolicy returns the stock epsilon window.
func DefaultPolicy() Policy {
	return Policy{
		EpsilonFloor:   0.01,
		EpsilonCeiling: GlobalEpsilonCeiling,
		EpsilonDefault: 1.0,
	}
}

// Engine draws per-field Laplace noise for metric bundles.
type Engine struct {
	policy Policy
	sens   domain.SensitivityMap
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithSensitivity sets per-field sensitivity overrides.
func WithSensitivity(m domain.SensitivityMap) Option {
	return func(e *Engine) {
		e.sens = m
	}
}

// WithLogger sets a logger for epsilon coercion warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine under the given policy.
func New(policy Policy, opts ...Option) *Engine {
	e := &Engine{policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// floor returns the effective lower epsilon bound.
func (e *Engine) floor() float64 {
	return math.Max(e.policy.EpsilonFloor, GlobalEpsilonFloor)
}

// ceiling returns the effective upper epsilon bound.
func (e *Engine) ceiling() float64 {
	if e.policy.EpsilonCeiling > 0 {
		return math.Min(e.policy.EpsilonCeiling, GlobalEpsilonCeiling)
	}
	return GlobalEpsilonCeiling
}

// DefaultEpsilon returns the policy default used when callers pass none.
func (e *Engine) DefaultEpsilon() float64 {
	return e.policy.EpsilonDefault
}

// NormalizeEpsilon coerces a caller-supplied epsilon into the policy window.
// Non-finite values take the policy default; zero means "skip noise" and is
// reported via the second return; negative values are read as magnitudes.
func (e *Engine) NormalizeEpsilon(eps float64) (float64, bool) {
	if math.IsNaN(eps) || math.IsInf(eps, 0) {
		if e.logger != nil {
			e.logger.Warn("non-finite epsilon coerced to default", "default", e.policy.EpsilonDefault)
		}
		eps = e.policy.EpsilonDefault
	}
	if eps == 0 {
		return 0, false
	}
	if eps < 0 {
		eps = -eps
	}
	if low := e.floor(); eps < low {
		eps = low
	}
	if high := e.ceiling(); eps > high {
		eps = high
	}
	return eps, true
}

// AddNoise clamps value into the score range, adds Laplace noise scaled by
// sensitivity/epsilon, and clamps again so the result stays presentable.
func (e *Engine) AddNoise(value, sensitivity, eps float64) (float64, error) {
	v := domain.ClampScore(value)
	if sensitivity <= 0 {
		sensitivity = domain.DefaultSensitivity
	}
	scale := sensitivity / math.Max(eps, e.floor())
	noise, err := laplaceSample(scale)
	if err != nil {
		return 0, err
	}
	return domain.ClampScore(v + noise), nil
}

// GuardBundle applies an independent noise draw to every field of the
// bundle. Per-field sensitivity comes from the engine's overrides, default
// 1.0. An epsilon that normalizes to "skip" returns the exact bundle with
// fields clamped into range.
func (e *Engine) GuardBundle(ctx context.Context, b domain.MetricBundle, eps float64) (domain.MetricBundle, error) {
	if err := ctx.Err(); err != nil {
		return b, err
	}

	norm, apply := e.NormalizeEpsilon(eps)
	if !apply {
		b.Clamp()
		return b, nil
	}

	var sampleErr error
	b.VisitFields(func(name string, v *float64) {
		if sampleErr != nil {
			return
		}
		noisy, err := e.AddNoise(*v, e.sens.For(name), norm)
		if err != nil {
			sampleErr = err
			return
		}
		*v = noisy
	})
	if sampleErr != nil {
		return domain.MetricBundle{}, sampleErr
	}
	return b, nil
}
