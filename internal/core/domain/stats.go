package domain

// IngestionStats summarises one ingestion run.
// A run always produces stats, even when every source fails.
type IngestionStats struct {
	// TotalProcessed is the number of raw records pulled from all sources.
	TotalProcessed int

	// TotalAccepted is the number of new unique records persisted.
	TotalAccepted int

	// TotalRejected is the number of records dropped by validation.
	TotalRejected int

	// DuplicatesRemoved counts candidates merged into or rejected against
	// an existing record. Two records becoming one counts once.
	DuplicatesRemoved int

	// WriteFailures counts records that survived deduplication but could
	// not be written to the inventory.
	WriteFailures int

	// LowConfidence counts persisted records scoring below the configured
	// confidence threshold. Display layers filter on the threshold;
	// ingestion keeps the records and only reports the count.
	LowConfidence int

	// PerSource is the processed-record count per source name.
	PerSource map[string]int
}

// NewIngestionStats creates an empty stats accumulator for one run.
func NewIngestionStats() *IngestionStats {
	return &IngestionStats{PerSource: make(map[string]int)}
}

// CountSource records that n raw records were pulled from the named source.
func (s *IngestionStats) CountSource(name string, n int) {
	s.TotalProcessed += n
	s.PerSource[name] += n
}
