package models

// CacheStats reports key-value store performance metrics.
type CacheStats struct {
	Name    string `json:"name"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}
