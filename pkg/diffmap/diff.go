// Package diffmap computes structural diffs over nested string-keyed
// maps. Results are plain values: the package keeps no state between
// calls, so concurrent diffs over different inputs cannot interfere
// with each other.
package diffmap

// Change records an updated leaf value.
type Change struct {
	Old any `yaml:"old"`
	New any `yaml:"new"`
}

// Result holds the structural difference between two maps. Keys only
// present in the new map land in Added, keys only present in the old
// map land in Removed, and keys present in both with unequal values
// land in Changed. Nested maps are diffed recursively, so a nested
// entry of Added/Removed/Changed mirrors the input structure.
type Result struct {
	Added   map[string]any `yaml:"added,omitempty"`
	Removed map[string]any `yaml:"removed,omitempty"`
	Changed map[string]any `yaml:"changed,omitempty"`
}

// Empty reports whether the two sides were structurally equivalent.
func (r Result) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// AsMap renders the result as a plain nested map for change records.
// Empty sections are omitted.
func (r Result) AsMap() map[string]any {
	out := make(map[string]any)
	if len(r.Added) > 0 {
		out["added"] = r.Added
	}
	if len(r.Removed) > 0 {
		out["removed"] = r.Removed
	}
	if len(r.Changed) > 0 {
		out["changed"] = r.Changed
	}
	return out
}

// Diff computes the structural difference between old and new.
func Diff(old, new map[string]any) Result {
	res := Result{
		Added:   make(map[string]any),
		Removed: make(map[string]any),
		Changed: make(map[string]any),
	}

	for key, newVal := range new {
		oldVal, exists := old[key]
		if !exists {
			res.Added[key] = newVal
			continue
		}

		oldMap, oldIsMap := asStringMap(oldVal)
		newMap, newIsMap := asStringMap(newVal)
		if oldIsMap && newIsMap {
			nested := Diff(oldMap, newMap)
			if len(nested.Added) > 0 {
				res.Added[key] = nested.Added
			}
			if len(nested.Removed) > 0 {
				res.Removed[key] = nested.Removed
			}
			if len(nested.Changed) > 0 {
				res.Changed[key] = nested.Changed
			}
			continue
		}

		if !leafEqual(oldVal, newVal) {
			res.Changed[key] = Change{Old: oldVal, New: newVal}
		}
	}

	for key, oldVal := range old {
		if _, exists := new[key]; !exists {
			res.Removed[key] = oldVal
		}
	}

	return res
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		// yaml.v2-era documents decode to interface-keyed maps.
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func leafEqual(a, b any) bool {
	if af, aOK := toFloat(a); aOK {
		if bf, bOK := toFloat(b); bOK {
			return af == bf
		}
		return false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !leafEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		am, aOK := asStringMap(a)
		bm, bOK := asStringMap(b)
		if aOK && bOK {
			return Diff(am, bm).Empty()
		}
		return a == b
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
