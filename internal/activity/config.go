package activity

import "fmt"

// requireString reads a required string field from a decoded chain
// config map. YAML decodes scalars as native Go strings via yaml.v3,
// so no further coercion is needed.
func requireString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// optionalString reads an optional string field, returning "" if absent.
func optionalString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// optionalStringPtr is optionalString with a nil/non-nil result
// suitable for PlotHint.Label.
func optionalStringPtr(cfg map[string]any, key string) (*string, error) {
	s, err := optionalString(cfg, key)
	if err != nil {
		return nil, err
	}
	if _, ok := cfg[key]; !ok {
		return nil, nil
	}
	return &s, nil
}

// stringSlice reads an optional []string field, which yaml.v3 decodes
// as []any of strings, returning nil if absent.
func stringSlice(cfg map[string]any, key string) ([]string, error) {
	v, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q: expected list, got %T", key, v)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected list of strings, got element %T", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// stringMap reads an optional map[string]string field, returning nil
// if absent (used by fio's "global" section).
func stringMap(cfg map[string]any, key string) (map[string]string, error) {
	v, ok := cfg[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("field %q: expected mapping, got %T", key, v)
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("field %q.%s: expected string, got %T", key, k, val)
		}
		out[k] = s
	}
	return out, nil
}
