package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingAck tracks one actuator send awaiting its acknowledgment.
type PendingAck struct {
	ID       string
	Status   string
	Sequence int64
	SentAt   time.Time
	Deadline time.Time
}

// Expired reports whether the ack deadline has passed at t.
func (p PendingAck) Expired(t time.Time) bool {
	return !p.Deadline.IsZero() && !t.Before(p.Deadline)
}

// AckOutbox stores pending acks by id.
type AckOutbox struct {
	mu    sync.RWMutex
	items map[string]PendingAck
}

func NewAckOutbox() *AckOutbox {
	return &AckOutbox{
		items: make(map[string]PendingAck),
	}
}

func (o *AckOutbox) Upsert(item PendingAck) {
	key := strings.TrimSpace(item.ID)
	if key == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[key] = item
}

func (o *AckOutbox) Remove(id string) {
	key := strings.TrimSpace(id)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, key)
}

func (o *AckOutbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// List returns pending acks oldest first.
func (o *AckOutbox) List() []PendingAck {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingAck, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}
