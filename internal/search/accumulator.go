package search

import (
	"sort"

	"github.com/sells-group/ad-scout/internal/model"
)

// accumulator collects classified records in discovery order. The first
// record seen for an identity key wins; later duplicates are dropped before
// they count toward the cap.
type accumulator struct {
	cap     int
	seen    map[string]struct{}
	records []model.AdRecord
	dupes   int
}

func newAccumulator(limit int) *accumulator {
	return &accumulator{
		cap:  limit,
		seen: make(map[string]struct{}),
	}
}

// add appends rec unless it is a duplicate or the cap is reached. It reports
// whether rec was kept and whether the accumulator is now full.
func (a *accumulator) add(rec model.AdRecord) (kept, full bool) {
	if a.full() {
		return false, true
	}
	key := rec.IdentityKey()
	if _, dup := a.seen[key]; dup {
		a.dupes++
		return false, false
	}
	a.seen[key] = struct{}{}
	a.records = append(a.records, rec)
	return true, a.full()
}

func (a *accumulator) full() bool {
	return len(a.records) >= a.cap
}

// SortForDisplay orders records winners first, then potentials, then by days
// running descending. Ties keep discovery order. The input is not modified.
func SortForDisplay(records []model.AdRecord) []model.AdRecord {
	out := make([]model.AdRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsWinner != b.IsWinner {
			return a.IsWinner
		}
		if a.IsPotential != b.IsPotential {
			return a.IsPotential
		}
		return a.DaysRunning > b.DaysRunning
	})
	return out
}
