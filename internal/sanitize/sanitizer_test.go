package sanitize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

func TestSanitizeString_Taxonomy(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		count int
	}{
		{"phone dashed", "call me at 403-555-1234 tomorrow", 1},
		{"phone dotted", "cell: 403.555.1234", 1},
		{"phone parens", "(403) 555-1234", 1},
		{"phone with country code", "+1 403 555 1234", 1},
		{"email", "reach me at jane.doe+notes@example.org please", 1},
		{"national id dashed", "SIN 123-45-6789 on file", 1},
		{"national id bare", "id 123456789 recorded", 1},
		{"credit card spaced", "paid with 4111 1111 1111 1111 yesterday", 1},
		{"credit card dashed", "card 4111-1111-1111-1111", 1},
		{"uuid", "session 550e8400-e29b-41d4-a716-446655440000 expired", 1},
		{"street address", "lives at 221 Baker Street since May", 1},
		{"two regions", "email a@b.io or phone 403-555-1234", 2},
		{"clean text", "pain level 7 after a short walk", 0},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, n := s.SanitizeString(tt.in)
			assert.Equal(t, tt.count, n)
			if tt.count > 0 {
				assert.Contains(t, out, Marker)
			} else {
				assert.Equal(t, tt.in, out)
			}
		})
	}
}

func TestSanitizeString_NoPIISurvives(t *testing.T) {
	s := New()
	seeded := []string{
		"403-555-1234",
		"jane@example.com",
		"123-45-6789",
		"4111 1111 1111 1111",
		"550e8400-e29b-41d4-a716-446655440000",
		"742 Evergreen Terrace",
	}
	for _, pii := range seeded {
		out, n := s.SanitizeString("before " + pii + " after")
		assert.GreaterOrEqual(t, n, 1, pii)
		assert.NotContains(t, out, pii)
	}
}

func TestSanitize_RecursiveWalk(t *testing.T) {
	s := New()
	record := domain.Record{
		"note":  "worse after call from 403-555-1234",
		"tags":  []any{"daily", "contact jane@example.com"},
		"meta":  map[string]any{"device": "550e8400-e29b-41d4-a716-446655440000"},
		"score": 7.5,
		"ok":    true,
	}

	res := s.Sanitize(record)
	require.GreaterOrEqual(t, res.Redactions, 3)

	out, ok := res.Value.(domain.Record)
	require.True(t, ok, "record type preserved")
	assert.Contains(t, out["note"], Marker)
	assert.NotContains(t, out["note"], "403-555-1234")

	tags := out["tags"].([]any)
	assert.Equal(t, "daily", tags[0])
	assert.Contains(t, tags[1], Marker)

	meta := out["meta"].(map[string]any)
	assert.Equal(t, Marker, meta["device"])

	assert.Equal(t, 7.5, out["score"])
	assert.Equal(t, true, out["ok"])

	// Input untouched.
	assert.Contains(t, record["note"], "403-555-1234")
}

func TestSanitize_PassThroughKinds(t *testing.T) {
	s := New()
	now := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	t.Run("time.Time unchanged", func(t *testing.T) {
		res := s.Sanitize(map[string]any{"at": now})
		out := res.Value.(map[string]any)
		assert.Equal(t, now, out["at"])
		assert.Zero(t, res.Redactions)
	})

	t.Run("numbers and bools unchanged", func(t *testing.T) {
		res := s.Sanitize(map[string]any{"n": 42, "f": 1.25, "b": false})
		out := res.Value.(map[string]any)
		assert.Equal(t, 42, out["n"])
		assert.Equal(t, 1.25, out["f"])
		assert.Equal(t, false, out["b"])
	})

	t.Run("nil unchanged", func(t *testing.T) {
		res := s.Sanitize(nil)
		assert.Nil(t, res.Value)
		assert.Zero(t, res.Redactions)
	})

	t.Run("func becomes marker", func(t *testing.T) {
		res := s.Sanitize(map[string]any{"cb": func() {}})
		out := res.Value.(map[string]any)
		assert.Equal(t, Marker, out["cb"])
		assert.Equal(t, 1, res.Redactions)
	})
}

func TestSanitize_CyclesTerminate(t *testing.T) {
	s := New()

	t.Run("map containing itself", func(t *testing.T) {
		m := map[string]any{"note": "ring 403-555-1234"}
		m["self"] = m

		res := s.Sanitize(m)
		out := res.Value.(map[string]any)
		assert.Contains(t, out["note"], Marker)
	})

	t.Run("slice cycle", func(t *testing.T) {
		inner := []any{nil}
		inner[0] = inner

		res := s.Sanitize(map[string]any{"loop": inner})
		require.NotNil(t, res.Value)
	})

	t.Run("pointer cycle", func(t *testing.T) {
		type node struct {
			Label string
			Next  *node
		}
		n := &node{Label: "email x@y.io"}
		n.Next = n

		res := s.Sanitize(n)
		out := res.Value.(*node)
		assert.Contains(t, out.Label, Marker)
		assert.Nil(t, out.Next, "cycle broken")
	})

	t.Run("shared subtree is not a cycle", func(t *testing.T) {
		shared := map[string]any{"who": "jane@example.com"}
		res := s.Sanitize(map[string]any{"a": shared, "b": shared})
		out := res.Value.(map[string]any)
		a := out["a"].(map[string]any)
		b := out["b"].(map[string]any)
		assert.Equal(t, Marker, a["who"])
		assert.Equal(t, Marker, b["who"])
	})
}

func TestSanitize_LengthCap(t *testing.T) {
	s := New()
	long := strings.Repeat("a", maxStringLen+100)

	out, n := s.SanitizeString(long)
	assert.Len(t, out, maxStringLen)
	assert.Equal(t, 1, n, "truncation counts as one redaction")
}

func TestSanitize_StructFields(t *testing.T) {
	type entry struct {
		Note    string
		Contact string
		When    time.Time
		Level   int
	}
	s := New()
	when := time.Now()
	in := entry{Note: "ok day", Contact: "403-555-1234", When: when, Level: 3}

	res := s.Sanitize(in)
	out := res.Value.(entry)
	assert.Equal(t, "ok day", out.Note)
	assert.Equal(t, Marker, out.Contact)
	assert.Equal(t, when, out.When)
	assert.Equal(t, 3, out.Level)
	assert.Equal(t, 1, res.Redactions)
}
