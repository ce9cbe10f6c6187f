package domain

// Record is one raw input row. The pipeline does not own its schema; rows
// arrive as free-form maps (notes, timestamps, nested detail) and are treated
// as untrusted until sanitized.
type Record map[string]any
