package sanitize

import "regexp"

// Marker replaces every redacted region. It is part of the output contract;
// downstream consumers match on it.
const Marker = "[REDACTED]"

// maxStringLen is the hard cap applied before pattern matching. Longer
// strings are truncated and the truncation is counted as a redaction.
const maxStringLen = 8 * 1024

// maxDepth bounds the recursive walk independently of the cycle cache.
const maxDepth = 128

type rule struct {
	name string
	re   *regexp.Regexp
}

// rules is the redaction taxonomy. Order is policy: earlier rules claim
// their regions first and later rules run on the already-redacted text.
var rules = []rule{
	{"phone", regexp.MustCompile(`(?:\+?1[\s\-.]?)?(?:\(\d{3}\)|\b\d{3})[\s\-.]?\d{3}[\s\-.]?\d{4}\b`)},
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{"national_id", regexp.MustCompile(`\b\d{3}-?\d{2}-?\d{4}\b`)},
	{"credit_card", regexp.MustCompile(`\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}\b`)},
	{"uuid", regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)},
	{"street_address", regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[A-Za-z][A-Za-z']*\s+){1,4}(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|place|pl|way|terrace|ter|circle|cir)\b`)},
}
