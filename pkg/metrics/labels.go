package metrics

// normalizeLabel keeps empty label values from producing blank series.
func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
