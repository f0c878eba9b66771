package entities

import "time"

// ScanRecord is the last decoded machine-readable code from the camera.
// DecodedAt older than the freshness window means the value must be
// treated as absent, even if still present in the cache.
type ScanRecord struct {
	Value     string    `json:"value"`
	DecodedAt time.Time `json:"decoded_at"`
}

// FreshAt reports whether the scan is still actionable at the given time.
func (s ScanRecord) FreshAt(now time.Time, window time.Duration) bool {
	return s.Value != "" && now.Sub(s.DecodedAt) <= window
}
