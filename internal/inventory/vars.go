package inventory

// combineVars merges two variable mappings into a new map. Keys in override
// win over keys in base. The merge is shallow: nested maps are replaced
// wholesale, never merged key-by-key.
func combineVars(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
