package sources

import (
	"sort"
	"sync"
	"time"
)

// Source describes one forwarder connection currently attached to the
// ingest listener.
type Source struct {
	ID           string `json:"id"`
	RemoteAddr   string `json:"remote_addr"`
	ConnectedAt  int64  `json:"connected_at"`
	LastRecordAt int64  `json:"last_record_at"`
	Records      int64  `json:"records"`
}

// Registry tracks live forwarder connections.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*Source),
	}
}

// Connect registers a new connection under its id.
func (r *Registry) Connect(id, remoteAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = &Source{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now().Unix(),
	}
}

// RecordSeen bumps the record count and last-seen timestamp for a connection.
func (r *Registry) RecordSeen(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[id]; ok {
		src.Records++
		src.LastRecordAt = time.Now().Unix()
	}
}

// Disconnect removes a connection from the registry.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
}

// Get retrieves a copy of one source by id.
func (r *Registry) Get(id string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	if !ok {
		return Source{}, false
	}
	return *src, true
}

// List returns all attached sources, oldest connection first.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		list = append(list, *src)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ConnectedAt != list[j].ConnectedAt {
			return list[i].ConnectedAt < list[j].ConnectedAt
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Count returns the number of attached connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
