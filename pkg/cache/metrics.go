package cache

// Metrics is a point-in-time snapshot of cache counters, consistent under
// Store's lock at the moment it was taken (spec §3, §5).
type Metrics struct {
	Hits             int64
	Misses           int64
	Stores           int64
	Evictions        int64
	Expirations      int64
	RejectedTooSmall int64

	EntryCount int
	TotalBytes int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when there have been no
// lookups yet.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}
