package lending

import "sort"

// entry is either a renting or a bare return marker carrying only ReturnedAt.
type entry struct {
	renting Renting
	marker  bool
}

func (e entry) key() uint64 {
	if e.marker {
		v, _ := e.renting.ReturnedAt.Value()
		return v
	}
	return e.renting.RentedAt
}

// normalize merges return markers into rentings. A marker whose time already
// closes a renting is a replay and is dropped. The rest are deduplicated,
// ordered by time (rentings before markers on ties) and each marker closes the
// renting right before it. It returns the merged rentings and the number of
// markers that had no open renting to close.
func normalize(rentings []Renting, markers []uint64) ([]Renting, int) {
	closedAt := make(map[uint64]struct{}, len(rentings))
	entries := make([]entry, 0, len(rentings)+len(markers))
	for _, r := range rentings {
		if at, ok := r.ReturnedAt.Value(); ok {
			closedAt[at] = struct{}{}
		}
		entries = append(entries, entry{renting: r})
	}
	for _, at := range markers {
		if _, ok := closedAt[at]; ok {
			continue
		}
		entries = append(entries, entry{renting: Renting{ReturnedAt: At(at)}, marker: true})
	}
	entries = dedup(entries)

	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := entries[i].key(), entries[j].key()
		if ki != kj {
			return ki < kj
		}
		return !entries[i].marker && entries[j].marker
	})

	out := make([]Renting, 0, len(entries))
	dangling := 0
	for _, e := range entries {
		if !e.marker {
			out = append(out, e.renting)
			continue
		}
		if len(out) == 0 {
			dangling++
			continue
		}
		prev := &out[len(out)-1]
		if prev.Closed() {
			dangling++
			continue
		}
		prev.ReturnedAt = e.renting.ReturnedAt
	}

	return dedup(subsume(out)), dangling
}

// subsume drops open rentings that repeat a closed one.
func subsume(rentings []Renting) []Renting {
	closed := make(map[Renting]struct{})
	for _, r := range rentings {
		if r.Closed() {
			closed[Renting{RenterAddress: r.RenterAddress, RentDuration: r.RentDuration, RentedAt: r.RentedAt}] = struct{}{}
		}
	}
	out := rentings[:0]
	for _, r := range rentings {
		if !r.Closed() {
			if _, ok := closed[r]; ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func dedup[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
