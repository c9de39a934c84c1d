package record

import "strings"

// Get returns the value at a dotted path such as "address.city".
func (r Record) Get(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes v at a dotted path, creating intermediate objects.
func (r Record) Set(path string, v any) {
	parts := strings.Split(path, ".")
	m := map[string]any(r)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(m[part])
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// Delete removes the value at a dotted path.
func (r Record) Delete(path string) {
	r.Walk(path, func(parent map[string]any, key string) {
		delete(parent, key)
	})
}

// Walk calls fn for every object holding the last path segment. Arrays met
// along the path are descended element by element, so "lines.item_id"
// visits the item_id of every line.
func (r Record) Walk(path string, fn func(parent map[string]any, key string)) {
	walk(map[string]any(r), strings.Split(path, "."), fn)
}

func walk(v any, parts []string, fn func(parent map[string]any, key string)) {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			walk(item, parts, fn)
		}
		return
	}
	m, ok := asMap(v)
	if !ok {
		return
	}
	if len(parts) == 1 {
		if _, present := m[parts[0]]; present {
			fn(m, parts[0])
		}
		return
	}
	walk(m[parts[0]], parts[1:], fn)
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Record:
		return map[string]any(t), true
	}
	return nil, false
}
