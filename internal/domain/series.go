package domain

// Series snapshots in the order they were received. Duplicated times are kept.
type Series []Snapshot

// NewSeries transforms raw rows into a series.
func NewSeries(rows []Row) Series {
	series := make(Series, 0, len(rows))
	for _, row := range rows {
		series = append(series, NewSnapshot(row))
	}
	return series
}

// Times returns the canonical times in series order.
func (s Series) Times() []string {
	times := make([]string, len(s))
	for i, snap := range s {
		times[i] = snap.Time
	}
	return times
}

// Find returns the first snapshot whose time equals t.
func (s Series) Find(t string) (Snapshot, bool) {
	for _, snap := range s {
		if snap.Time == t {
			return snap, true
		}
	}
	return Snapshot{}, false
}

// IndexOf returns the index of the first snapshot with time t, or -1.
func (s Series) IndexOf(t string) int {
	for i, snap := range s {
		if snap.Time == t {
			return i
		}
	}
	return -1
}
