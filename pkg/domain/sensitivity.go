package domain

// DefaultSensitivity is the L1 sensitivity assumed for any metric field
// without an explicit override. Bundle fields are bounded scores, so one
// record can move a field by at most a full unit under the default model.
const DefaultSensitivity = 1.0

// SensitivityMap overrides per-field L1 sensitivity for the noise guard.
// Keys are the dotted field names produced by MetricBundle.VisitFields.
type SensitivityMap map[string]float64

// For returns the sensitivity for a field, falling back to
// DefaultSensitivity when no override exists or the override is not usable.
func (m SensitivityMap) For(field string) float64 {
	if m == nil {
		return DefaultSensitivity
	}
	s, ok := m[field]
	if !ok || s <= 0 {
		return DefaultSensitivity
	}
	return s
}
