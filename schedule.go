package glide

import (
	"container/heap"
	"time"
)

// timerKind identifies what a scheduled timer does when it fires.
type timerKind uint8

const (
	timerRecheck timerKind = iota // one-shot height re-check after load
	timerPoll                     // bounded fallback poll tick
)

func (k timerKind) String() string {
	if k == timerPoll {
		return "poll"
	}
	return "recheck"
}

type timer struct {
	due  time.Time
	kind timerKind
	seq  uint64 // insertion order, breaks ties between equal deadlines
}

// timerHeap is a min-heap of timers ordered by deadline.
type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// schedule is the engine's timer queue. Only the engine's owner touches it.
type schedule struct {
	timers timerHeap
	seq    uint64
}

// add schedules a timer of the given kind at due.
func (s *schedule) add(due time.Time, kind timerKind) {
	s.seq++
	heap.Push(&s.timers, timer{due: due, kind: kind, seq: s.seq})
}

// next returns the earliest deadline, if any.
func (s *schedule) next() (time.Time, bool) {
	if len(s.timers) == 0 {
		return time.Time{}, false
	}
	return s.timers[0].due, true
}

// popDue removes and returns the earliest timer if it is due at now.
func (s *schedule) popDue(now time.Time) (timer, bool) {
	if len(s.timers) == 0 || s.timers[0].due.After(now) {
		return timer{}, false
	}
	return heap.Pop(&s.timers).(timer), true
}

// count returns the number of pending timers of the given kind.
func (s *schedule) count(kind timerKind) int {
	n := 0
	for _, t := range s.timers {
		if t.kind == kind {
			n++
		}
	}
	return n
}

// clear drops every pending timer.
func (s *schedule) clear() {
	s.timers = s.timers[:0]
}
