package session

import (
	"math/rand"
	"sync/atomic"
	"time"
)

// Initial sequence numbers are drawn from [SequenceMin, SequenceMax] so a
// restarted peer is unlikely to reuse recent values.
const (
	SequenceMin = 1000
	SequenceMax = 30000
)

// Sequence is an outbound counter owned by one sending peer.
type Sequence struct {
	next atomic.Int64
}

// NewSequence seeds a counter from rng; nil uses a time-seeded source.
func NewSequence(rng *rand.Rand) *Sequence {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return NewSequenceAt(int64(SequenceMin + rng.Intn(SequenceMax-SequenceMin+1)))
}

// NewSequenceAt starts a counter at a fixed value.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

// Next returns the current value and advances the counter.
func (s *Sequence) Next() int64 {
	return s.next.Add(1) - 1
}

// Peek returns the value Next would hand out.
func (s *Sequence) Peek() int64 {
	return s.next.Load()
}
