package controller

import (
	"sort"
	"strings"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Carriage is the controller's view of one carriage.
type Carriage struct {
	ID           string    `json:"id"`
	Addr         string    `json:"addr"`
	LastStatus   string    `json:"last_status,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
	RegisteredAt time.Time `json:"registered_at"`
	Registered   bool      `json:"registered"`
	Messages     uint64    `json:"messages"`
}

// Preset is a carriage known before its first handshake.
type Preset struct {
	ID   string
	Addr string
}

// Registry stores carriages by id.
type Registry struct {
	mu    deadlock.RWMutex
	items map[string]*Carriage
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Carriage)}
}

// Preset adds a carriage with a configured address. A handshake later
// replaces the address with the observed source.
func (r *Registry) Preset(p Preset) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		return
	}
	r.items[id] = &Carriage{ID: id, Addr: strings.TrimSpace(p.Addr)}
}

// Register records a handshake from id at addr. An empty status keeps the
// previous one.
func (r *Registry) Register(id, addr, status string) Carriage {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.touchLocked(id, addr)
	if status != "" {
		item.LastStatus = status
	}
	if !item.Registered {
		item.Registered = true
		item.RegisteredAt = item.LastSeen
	}
	return *item
}

// RecordStatus stores the latest status reported by id.
func (r *Registry) RecordStatus(id, addr, status string) Carriage {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.touchLocked(id, addr)
	item.LastStatus = status
	return *item
}

// Touch notes traffic from id without changing its status.
func (r *Registry) Touch(id, addr string) Carriage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.touchLocked(id, addr)
}

func (r *Registry) touchLocked(id, addr string) *Carriage {
	item, ok := r.items[id]
	if !ok {
		item = &Carriage{ID: id}
		r.items[id] = item
	}
	if strings.TrimSpace(addr) != "" {
		item.Addr = addr
	}
	item.LastSeen = time.Now()
	item.Messages++
	return item
}

func (r *Registry) Lookup(id string) (Carriage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[strings.TrimSpace(id)]
	if !ok {
		return Carriage{}, false
	}
	return *item, true
}

// List returns all carriages ordered by id.
func (r *Registry) List() []Carriage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Carriage, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Registered returns carriages that completed a handshake.
func (r *Registry) Registered() []Carriage {
	all := r.List()
	out := all[:0]
	for _, item := range all {
		if item.Registered {
			out = append(out, item)
		}
	}
	return out
}
