package state

import "strings"

// splitPath splits a dot-separated path. It never fails; an empty path is
// the single key "".
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// lookup walks root along parts.
func lookup(root map[string]any, parts []string) (any, bool) {
	current := any(root)
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok || m == nil {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

// parentFor returns the map that holds the last segment of parts, creating
// or replacing intermediates that are not maps.
func parentFor(root map[string]any, parts []string) map[string]any {
	current := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok || next == nil {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	return current
}

// existingParent is parentFor without creation.
func existingParent(root map[string]any, parts []string) (map[string]any, bool) {
	if len(parts) == 1 {
		return root, true
	}
	v, ok := lookup(root, parts[:len(parts)-1])
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// deepCopy copies nested maps and slices. Other values are shared.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// mergeInto deep-merges src into dst. Maps merge key by key; any other
// value in src replaces the one in dst.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok && dm != nil {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = deepCopy(v)
	}
}
