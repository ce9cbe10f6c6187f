package domain

// PrincipalID identifies the subject whose records enter the pipeline.
// This is a domain primitive: raw principal identifiers stay in process
// memory and are pseudonymized before they reach any durable sink.
type PrincipalID string

// String returns the raw identifier. Callers that persist or log it must
// pseudonymize first.
func (p PrincipalID) String() string {
	return string(p)
}

// IsZero reports whether the principal is unset.
func (p PrincipalID) IsZero() bool {
	return p == ""
}
