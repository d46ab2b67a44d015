// Package approval builds change requests for records that are already live:
// instead of writing edits directly, it diffs the edited copy against the
// original snapshot and submits only the changed fields for review.
package approval

import (
	"encoding/json"
	"reflect"
	"time"

	dErrors "spiceportal/pkg/domainerrors"
)

// Diff returns the fields of current whose values differ from original.
// Comparison rules:
//   - timestamps compare at day granularity, so a time-of-day drift from
//     widget round-trips does not produce a phantom change
//   - arrays and nested objects compare deeply; a changed array is emitted
//     whole, never element-by-element
//   - fields absent from current are ignored, a change request only carries
//     new values
func Diff(original, current map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, cur := range current {
		orig, ok := original[key]
		if !ok {
			if !isEmptyValue(cur) {
				changes[key] = cur
			}
			continue
		}
		if !equal(orig, cur) {
			changes[key] = cur
		}
	}
	return changes
}

// DiffValues flattens two like-shaped structs through their JSON form and
// diffs the results.
func DiffValues(original, current any) (map[string]any, error) {
	origMap, err := toMap(original)
	if err != nil {
		return nil, err
	}
	curMap, err := toMap(current)
	if err != nil {
		return nil, err
	}
	return Diff(origMap, curMap), nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to prepare change request.")
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to prepare change request.")
	}
	return out, nil
}

func equal(a, b any) bool {
	if dayA, ok := asDay(a); ok {
		if dayB, ok := asDay(b); ok {
			return dayA.Equal(dayB)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// asDay parses RFC 3339 timestamps and truncates them to their calendar day.
func asDay(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
