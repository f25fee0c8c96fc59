package cache

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joeycumines/floater"
)

// Stats holds atomic counters for one Cache instance, backing
// Cache.Stats's snapshots. A nil *Stats (the case when the builder's
// WithStats(false) is in effect, the default) makes every Record* method
// a no-op, so call sites never need to branch on whether stats are
// enabled.
type Stats struct {
	hits           atomic.Int64
	misses         atomic.Int64
	loadSuccess    atomic.Int64
	loadFailure    atomic.Int64
	totalLoadNanos atomic.Int64
	evictionCount  atomic.Int64
	evictionWeight atomic.Int64
}

func (s *Stats) recordHit() {
	if s != nil {
		s.hits.Add(1)
	}
}

func (s *Stats) recordMiss() {
	if s != nil {
		s.misses.Add(1)
	}
}

func (s *Stats) recordLoadSuccess(d time.Duration) {
	if s != nil {
		s.loadSuccess.Add(1)
		s.totalLoadNanos.Add(int64(d))
	}
}

func (s *Stats) recordLoadFailure(d time.Duration) {
	if s != nil {
		s.loadFailure.Add(1)
		s.totalLoadNanos.Add(int64(d))
	}
}

func (s *Stats) recordEviction(weight int64) {
	if s != nil {
		s.evictionCount.Add(1)
		s.evictionWeight.Add(weight)
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Hits:             s.hits.Load(),
		Misses:           s.misses.Load(),
		LoadSuccessCount: s.loadSuccess.Load(),
		LoadFailureCount: s.loadFailure.Load(),
		TotalLoadNanos:   s.totalLoadNanos.Load(),
		EvictionCount:    s.evictionCount.Load(),
		EvictionWeight:   s.evictionWeight.Load(),
	}
}

// StatsSnapshot is an immutable view of a Cache's counters at some
// instant, with the derived metrics spec section 4.9.8 names.
type StatsSnapshot struct {
	Hits             int64
	Misses           int64
	LoadSuccessCount int64
	LoadFailureCount int64
	TotalLoadNanos   int64
	EvictionCount    int64
	EvictionWeight   int64
}

// RequestCount is Hits + Misses.
func (s StatsSnapshot) RequestCount() int64 { return s.Hits + s.Misses }

// HitRate is Hits / RequestCount, or 1.0 if there were no requests.
func (s StatsSnapshot) HitRate() float64 {
	total := s.RequestCount()
	if total == 0 {
		return 1.0
	}
	return float64(s.Hits) / float64(total)
}

// MissRate is Misses / RequestCount, or 0.0 if there were no requests.
func (s StatsSnapshot) MissRate() float64 {
	total := s.RequestCount()
	if total == 0 {
		return 0.0
	}
	return float64(s.Misses) / float64(total)
}

// LoadCount is LoadSuccessCount + LoadFailureCount.
func (s StatsSnapshot) LoadCount() int64 { return s.LoadSuccessCount + s.LoadFailureCount }

// LoadFailureRate is LoadFailureCount / LoadCount, or 0.0 if nothing was
// ever loaded.
func (s StatsSnapshot) LoadFailureRate() float64 {
	total := s.LoadCount()
	if total == 0 {
		return 0.0
	}
	return float64(s.LoadFailureCount) / float64(total)
}

// AverageLoadPenalty is the mean duration of a GetOrLoad load call
// (success or failure), or 0 if nothing was ever loaded.
func (s StatsSnapshot) AverageLoadPenalty() time.Duration {
	total := s.LoadCount()
	if total == 0 {
		return 0
	}
	return time.Duration(s.TotalLoadNanos / total)
}

// Plus combines two snapshots field-by-field, for aggregating stats
// across several caches.
func (s StatsSnapshot) Plus(o StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Hits:             s.Hits + o.Hits,
		Misses:           s.Misses + o.Misses,
		LoadSuccessCount: s.LoadSuccessCount + o.LoadSuccessCount,
		LoadFailureCount: s.LoadFailureCount + o.LoadFailureCount,
		TotalLoadNanos:   s.TotalLoadNanos + o.TotalLoadNanos,
		EvictionCount:    s.EvictionCount + o.EvictionCount,
		EvictionWeight:   s.EvictionWeight + o.EvictionWeight,
	}
}

// Minus is the inverse of Plus, for diffing two snapshots taken of the
// same cache at different times.
func (s StatsSnapshot) Minus(o StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		Hits:             s.Hits - o.Hits,
		Misses:           s.Misses - o.Misses,
		LoadSuccessCount: s.LoadSuccessCount - o.LoadSuccessCount,
		LoadFailureCount: s.LoadFailureCount - o.LoadFailureCount,
		TotalLoadNanos:   s.TotalLoadNanos - o.TotalLoadNanos,
		EvictionCount:    s.EvictionCount - o.EvictionCount,
		EvictionWeight:   s.EvictionWeight - o.EvictionWeight,
	}
}

// String renders a human-readable summary, formatting the average load
// penalty with floater so fractional-nanosecond averages don't print as
// an unreadable run of digits.
func (s StatsSnapshot) String() string {
	penalty := s.AverageLoadPenalty()
	return "CacheStats{hits=" + strconv.FormatInt(s.Hits, 10) + ", misses=" + strconv.FormatInt(s.Misses, 10) +
		", hitRate=" + strconv.FormatFloat(s.HitRate(), 'f', 4, 64) +
		", loadSuccess=" + strconv.FormatInt(s.LoadSuccessCount, 10) +
		", loadFailure=" + strconv.FormatInt(s.LoadFailureCount, 10) +
		", avgLoadPenalty=" + floater.FormatUnitsNanosTrimmed(int64(penalty/time.Second), int32(penalty%time.Second)) + "s" +
		", evictions=" + strconv.FormatInt(s.EvictionCount, 10) +
		", evictionWeight=" + strconv.FormatInt(s.EvictionWeight, 10) + "}"
}
