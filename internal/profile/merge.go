package profile

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPatch is returned when a patch is not a JSON object.
var ErrInvalidPatch = errors.New("invalid profile patch")

// Merge applies a partial profile document on top of base. Nested objects
// are merged key by key; any other value (including null and arrays)
// replaces the previous one. The merged result must still be a complete,
// valid profile.
func Merge(base Profile, patch []byte) (Profile, error) {
	var updates map[string]any
	if err := json.Unmarshal(patch, &updates); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if updates == nil {
		return Profile{}, fmt.Errorf("%w: patch must be a JSON object", ErrInvalidPatch)
	}

	raw, err := json.Marshal(base)
	if err != nil {
		return Profile{}, fmt.Errorf("encoding base profile: %w", err)
	}
	var target map[string]any
	if err := json.Unmarshal(raw, &target); err != nil {
		return Profile{}, fmt.Errorf("decoding base profile: %w", err)
	}

	doc, err := json.Marshal(deepMerge(target, updates))
	if err != nil {
		return Profile{}, fmt.Errorf("encoding merged profile: %w", err)
	}
	return Parse(doc)
}

func deepMerge(target, source map[string]any) map[string]any {
	out := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		out[k] = v
	}
	for k, v := range source {
		if nested, ok := v.(map[string]any); ok {
			prev, _ := out[k].(map[string]any)
			out[k] = deepMerge(prev, nested)
			continue
		}
		out[k] = v
	}
	return out
}
