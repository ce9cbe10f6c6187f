// Package sanitize strips PII from arbitrary record values before they reach
// scoring, logging, or any durable sink. The walk tolerates cycles, truncates
// oversized strings, and never panics outward.
package sanitize

import (
	"reflect"
	"time"
)

// Result carries the sanitized value and how many regions were redacted.
type Result struct {
	Value      any
	Redactions int
}

// Sanitizer applies the redaction taxonomy recursively. Construct with New;
// it is safe for concurrent use.
type Sanitizer struct{}

// New returns a Sanitizer.
func New() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize walks v and returns a redacted copy. The input is never mutated.
// Dates, numbers, bools, and nils pass through unchanged; strings get the
// taxonomy applied; unsupported kinds (func, chan) become the marker.
// Sanitize never panics.
func (s *Sanitizer) Sanitize(v any) (res Result) {
	w := &walker{visiting: make(map[visitKey]bool)}
	defer func() {
		if r := recover(); r != nil {
			// Fail toward redaction, never toward leaking.
			res = Result{Value: Marker, Redactions: w.redactions + 1}
		}
	}()

	if v == nil {
		return Result{Value: nil}
	}
	out := w.walk(reflect.ValueOf(v), 0)
	return Result{Value: valueToAny(out), Redactions: w.redactions}
}

// SanitizeString is the single-string fast path.
func (s *Sanitizer) SanitizeString(in string) (string, int) {
	return redactString(in)
}

type visitKey struct {
	ptr  uintptr
	kind reflect.Kind
}

type walker struct {
	visiting   map[visitKey]bool
	redactions int
}

var timeType = reflect.TypeOf(time.Time{})

// walk returns a sanitized copy of rv. Replacement values that do not fit a
// typed slot degrade to the slot's zero value.
func (w *walker) walk(rv reflect.Value, depth int) reflect.Value {
	if depth > maxDepth {
		w.redactions++
		return reflect.ValueOf(Marker)
	}

	switch rv.Kind() {
	case reflect.String:
		out, n := redactString(rv.String())
		w.redactions += n
		if rv.Type() == reflect.TypeOf("") {
			return reflect.ValueOf(out)
		}
		return reflect.ValueOf(out).Convert(rv.Type())

	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		return w.walk(rv.Elem(), depth+1)

	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		key := visitKey{ptr: rv.Pointer(), kind: reflect.Pointer}
		if w.visiting[key] {
			return reflect.Zero(rv.Type())
		}
		w.visiting[key] = true
		defer delete(w.visiting, key)

		elem := w.walk(rv.Elem(), depth+1)
		out := reflect.New(rv.Type().Elem())
		if elem.Type().AssignableTo(rv.Type().Elem()) {
			out.Elem().Set(elem)
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		key := visitKey{ptr: rv.Pointer(), kind: reflect.Map}
		if w.visiting[key] {
			return reflect.Zero(rv.Type())
		}
		w.visiting[key] = true
		defer delete(w.visiting, key)

		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.String {
				redacted, n := redactString(k.String())
				w.redactions += n
				k = reflect.ValueOf(redacted).Convert(rv.Type().Key())
			}
			out.SetMapIndex(k, w.fit(w.walk(iter.Value(), depth+1), rv.Type().Elem()))
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		key := visitKey{ptr: rv.Pointer(), kind: reflect.Slice}
		if w.visiting[key] {
			return reflect.Zero(rv.Type())
		}
		w.visiting[key] = true
		defer delete(w.visiting, key)

		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(w.fit(w.walk(rv.Index(i), depth+1), rv.Type().Elem()))
		}
		return out

	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(w.fit(w.walk(rv.Index(i), depth+1), rv.Type().Elem()))
		}
		return out

	case reflect.Struct:
		if rv.Type() == timeType {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		if out.CanSet() {
			out.Set(rv)
		}
		for i := 0; i < rv.NumField(); i++ {
			field := out.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(w.fit(w.walk(rv.Field(i), depth+1), field.Type()))
		}
		return out

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		w.redactions++
		return reflect.ValueOf(Marker)

	default:
		// Numbers, bools, complex values pass through unchanged.
		return rv
	}
}

// fit coerces a sanitized value into a destination type, degrading to the
// zero value when the replacement cannot be assigned (marker into a typed
// func slot, broken cycle into a typed pointer slot).
func (w *walker) fit(v reflect.Value, dst reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(dst)
	}
	if v.Type().AssignableTo(dst) {
		return v
	}
	return reflect.Zero(dst)
}

func valueToAny(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// redactString truncates to the hard cap, then applies every rule in
// taxonomy order. Each replaced region counts once; a truncation counts
// once.
func redactString(in string) (string, int) {
	count := 0
	if len(in) > maxStringLen {
		in = in[:maxStringLen]
		count++
	}
	for _, r := range rules {
		matches := r.re.FindAllStringIndex(in, -1)
		if len(matches) == 0 {
			continue
		}
		count += len(matches)
		in = r.re.ReplaceAllString(in, Marker)
	}
	return in, count
}
