package transform

// MaxDrawdown computes the maximum peak-to-trough decline of an account
// value series as a positive percentage. Values seen while the running
// peak is non-positive are skipped, so a series that starts at zero is
// measured from its first positive peak. Returns nil for an empty
// series.
func MaxDrawdown(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	result := maxDD * 100
	return &result
}
