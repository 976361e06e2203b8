package fingerprint

import (
	"container/heap"
	"sort"
)

// entry is one registered recording: its id and feature sequence.
type entry struct {
	id       string
	features []feature
}

// beam is one candidate alignment between the query and a stretch of a
// registered feature sequence. Its score is the mean feature distance
// along the alignment, kept as a fraction so comparisons stay exact.
type beam struct {
	src        *entry
	start, end int // frame range within src.features (inclusive)
	num, den   uint64
	queryStart int // query frame at which this beam was seeded
}

// worse reports whether b scores strictly worse (higher mean distance)
// than o, comparing fractions by cross-multiplication.
func (b *beam) worse(o *beam) bool {
	return b.num*o.den > o.num*b.den
}

func (b *beam) score() float32 {
	return float32(b.num) / float32(b.den)
}

// beamHeap is a max-heap by score: the worst beam sits at the root so it
// can be evicted when a better candidate appears.
type beamHeap []*beam

func (h beamHeap) Len() int           { return len(h) }
func (h beamHeap) Less(i, j int) bool { return h[i].worse(h[j]) }
func (h beamHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *beamHeap) Push(x any)        { *h = append(*h, x.(*beam)) }
func (h *beamHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return b
}

// result is a finalized match in frame units; the session scales it to
// seconds.
type result struct {
	id         string
	score      float32
	start, end int
	queryStart int
}

// query is an in-progress beam search over a snapshot of the registered
// entries. Feed it one query feature at a time with update, then call
// finalize.
type query struct {
	cfg     Config
	entries []*entry // sorted by id for deterministic seeding
	beams   beamHeap
	head    int
}

func newQuery(cfg Config, entries []*entry) *query {
	return &query{
		cfg:     cfg,
		entries: entries,
		beams:   make(beamHeap, 0, cfg.SearchBeamCount),
	}
}

// update advances every live beam by one query frame and seeds new beams
// at every position of every entry, keeping only the best SearchBeamCount.
func (q *query) update(f feature) {
	// Time-warp existing beams: each may jump up to SearchWindow frames
	// ahead in its source, landing on the closest feature. Beams that run
	// off the end of their source die.
	next := make(beamHeap, 0, len(q.beams))
	for _, b := range q.beams {
		feats := b.src.features
		start := b.end + 1
		end := min(start+q.cfg.SearchWindow, len(feats))
		if start >= end {
			continue
		}

		bestOff, bestDist := -1, 0
		for off, cand := range feats[start:end] {
			if d := cand.distance(f); bestOff < 0 || d < bestDist {
				bestOff, bestDist = off, d
			}
		}

		b.end = start + bestOff
		b.num += uint64(bestDist)
		b.den++
		next = append(next, b)
	}
	heap.Init(&next)

	// Seed a fresh beam at every registered frame; admit it only if the
	// set has room or it beats the current worst.
	for _, e := range q.entries {
		for pos, cand := range e.features {
			d := uint64(cand.distance(f))
			nb := &beam{
				src:        e,
				start:      pos,
				end:        pos,
				num:        q.cfg.SearchScorePenalty + d,
				den:        q.cfg.SearchLengthPenalty + 1,
				queryStart: q.head,
			}
			if len(next) < q.cfg.SearchBeamCount {
				heap.Push(&next, nb)
			} else if worst := next[0]; worst.worse(nb) {
				next[0] = nb
				heap.Fix(&next, 0)
			}
		}
	}

	q.head++
	q.beams = next
}

// finalize ranks the surviving beams best-first and suppresses results
// whose frame range is covered by a stronger one.
func (q *query) finalize() []result {
	beams := []*beam(q.beams)
	sort.Slice(beams, func(i, j int) bool {
		bi, bj := beams[i], beams[j]
		si, sj := bi.num*bj.den, bj.num*bi.den
		if si != sj {
			return si < sj
		}
		// Deterministic order for equal scores.
		if bi.src.id != bj.src.id {
			return bi.src.id < bj.src.id
		}
		if bi.start != bj.start {
			return bi.start < bj.start
		}
		return bi.queryStart < bj.queryStart
	})

	var results []result
	for len(beams) > 0 {
		best := beams[0]
		beams = beams[1:]

		kept := beams[:0]
		for _, o := range beams {
			interStart := max(best.start, o.start)
			interEnd := min(best.end, o.end)
			inter := interEnd - interStart
			if inter < 0 {
				inter = 0
			}
			span := o.end - o.start
			var overlap float64
			if span != 0 {
				overlap = float64(inter) / float64(span)
			}
			if overlap < q.cfg.SearchOverlap {
				kept = append(kept, o)
			}
		}
		beams = kept

		results = append(results, result{
			id:         best.src.id,
			score:      best.score(),
			start:      best.start,
			end:        best.end,
			queryStart: best.queryStart,
		})
	}
	return results
}
