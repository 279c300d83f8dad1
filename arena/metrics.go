package arena

import (
	"github.com/spacemeshos/go-arenatree/metrics"
)

const subsystem = "arena"

var (
	bucketsAllocated = metrics.NewCounter(
		"buckets_allocated",
		subsystem,
		"number of buckets allocated",
		[]string{"kind"},
	)
	headBuckets      = bucketsAllocated.WithLabelValues("head")
	secondaryBuckets = bucketsAllocated.WithLabelValues("secondary")

	slotEvents = metrics.NewCounter(
		"slot_events",
		subsystem,
		"slot allocations and releases by source",
		[]string{"event"},
	)
	freshSlots    = slotEvents.WithLabelValues("fresh")
	reusedSlots   = slotEvents.WithLabelValues("reused")
	recycledSlots = slotEvents.WithLabelValues("recycled")

	liveSlots = metrics.NewGauge(
		"live_slots",
		subsystem,
		"number of slots holding an element across all chains",
		[]string{},
	).WithLabelValues()

	slowLookups = metrics.NewCounter(
		"slow_lookups",
		subsystem,
		"slot lookups that had to walk a multi-bucket chain",
		[]string{},
	).WithLabelValues()

	cloneSize = metrics.NewHistogramWithBuckets(
		"clone_slots",
		subsystem,
		"number of slots copied by chain clones",
		[]string{},
		[]float64{16, 64, 256, 1024, 4096, 16384, 65536, 262144},
	).WithLabelValues()
)
