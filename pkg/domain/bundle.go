package domain

// Score bounds for every metric field. Values outside the range are clamped,
// never rejected, so noisy upstream scorers cannot poison the bundle.
const (
	ScoreMin = 0.0
	ScoreMax = 100.0
)

// ClampScore forces v into [ScoreMin, ScoreMax].
func ClampScore(v float64) float64 {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}

// MetricBundle is the aggregate output of a collection run. All fields are
// scores in [0, 100]. The bundle carries no record content and no principal
// identifiers; it is the only artifact that may leave the trust boundary.
type MetricBundle struct {
	Resilience ResilienceMetrics `json:"resilience"`
	Progress   ProgressMetrics   `json:"progress"`
	Engagement EngagementMetrics `json:"engagement"`
	Traits     TraitMetrics      `json:"traits"`
}

// ResilienceMetrics captures emotional steadiness signals.
type ResilienceMetrics struct {
	Composure  float64 `json:"composure"`
	Recovery   float64 `json:"recovery"`
	Outlook    float64 `json:"outlook"`
	Connection float64 `json:"connection"`
}

// ProgressMetrics captures trajectory signals over the record window.
type ProgressMetrics struct {
	TrendAdherence float64 `json:"trendAdherence"`
	GoalMomentum   float64 `json:"goalMomentum"`
	ReboundRate    float64 `json:"reboundRate"`
}

// EngagementMetrics captures usage-shaped indicators.
type EngagementMetrics struct {
	EntryCadence    float64 `json:"entryCadence"`
	DetailRichness  float64 `json:"detailRichness"`
	StreakStability float64 `json:"streakStability"`
}

// TraitMetrics captures humanized trait readings.
type TraitMetrics struct {
	Steadiness float64 `json:"steadiness"`
	Openness   float64 `json:"openness"`
	Initiative float64 `json:"initiative"`
}

// VisitFields calls fn once per metric field in a stable, declaration-order
// sequence. fn receives the dotted field name and a pointer it may write
// through. Transforms that must touch every field (noise injection, clamping)
// use this instead of reflection.
func (b *MetricBundle) VisitFields(fn func(name string, value *float64)) {
	fn("resilience.composure", &b.Resilience.Composure)
	fn("resilience.recovery", &b.Resilience.Recovery)
	fn("resilience.outlook", &b.Resilience.Outlook)
	fn("resilience.connection", &b.Resilience.Connection)
	fn("progress.trendAdherence", &b.Progress.TrendAdherence)
	fn("progress.goalMomentum", &b.Progress.GoalMomentum)
	fn("progress.reboundRate", &b.Progress.ReboundRate)
	fn("engagement.entryCadence", &b.Engagement.EntryCadence)
	fn("engagement.detailRichness", &b.Engagement.DetailRichness)
	fn("engagement.streakStability", &b.Engagement.StreakStability)
	fn("traits.steadiness", &b.Traits.Steadiness)
	fn("traits.openness", &b.Traits.Openness)
	fn("traits.initiative", &b.Traits.Initiative)
}

// Clamp forces every field into [ScoreMin, ScoreMax] in place.
func (b *MetricBundle) Clamp() {
	b.VisitFields(func(_ string, v *float64) {
		*v = ClampScore(*v)
	})
}

// FieldCount is the number of metric fields in a bundle.
const FieldCount = 13
