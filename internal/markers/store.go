// Package markers persists asset-map location markers to a CSV file.
package markers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Marker is one asset location on the map. Properties carries arbitrary
// metadata and is stored JSON-encoded in the CSV.
type Marker struct {
	ID         int            `json:"id"`
	Lat        float64        `json:"lat"`
	Lng        float64        `json:"lng"`
	Properties map[string]any `json:"properties"`
}

// Store handles the persistence and in-memory management of markers.
// Every mutation rewrites the whole file; fine at asset-map scale.
type Store struct {
	filePath string
	mu       sync.RWMutex
	markers  []Marker
}

// NewStore creates a marker store backed by the given CSV path.
func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
		markers:  make([]Marker, 0),
	}
}

// Load reads markers from disk. A missing file is not an error; it is
// created on the first save.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil
	}

	f, err := os.Open(s.filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read markers csv: %w", err)
	}

	markers := make([]Marker, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			// Header row, or a short row from a hand-edited file.
			continue
		}
		id, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		lat, _ := strconv.ParseFloat(row[1], 64)
		lng, _ := strconv.ParseFloat(row[2], 64)
		props := make(map[string]any)
		if row[3] != "" {
			if err := json.Unmarshal([]byte(row[3]), &props); err != nil {
				// Unparseable properties degrade to empty rather than
				// failing the whole load.
				props = make(map[string]any)
			}
		}
		markers = append(markers, Marker{ID: id, Lat: lat, Lng: lng, Properties: props})
	}
	s.markers = markers
	return nil
}

// saveLocked rewrites the CSV. Callers must hold the write lock.
func (s *Store) saveLocked() error {
	f, err := os.Create(s.filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "lat", "lng", "properties"}); err != nil {
		return err
	}
	for _, m := range s.markers {
		props, err := json.Marshal(m.Properties)
		if err != nil {
			return err
		}
		row := []string{
			strconv.Itoa(m.ID),
			strconv.FormatFloat(m.Lat, 'f', -1, 64),
			strconv.FormatFloat(m.Lng, 'f', -1, 64),
			string(props),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns all markers in storage order.
func (s *Store) List() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Marker, len(s.markers))
	copy(list, s.markers)
	return list
}

// Count returns the number of stored markers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

// Add stores a new marker and persists it. A zero ID means the server
// assigns the next one (max existing + 1); a client-supplied ID is kept.
func (s *Store) Add(m Marker) (Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == 0 {
		maxID := 0
		for _, existing := range s.markers {
			if existing.ID > maxID {
				maxID = existing.ID
			}
		}
		m.ID = maxID + 1
	}
	if m.Properties == nil {
		m.Properties = make(map[string]any)
	}

	s.markers = append(s.markers, m)
	if err := s.saveLocked(); err != nil {
		return Marker{}, err
	}
	return m, nil
}

// Update overwrites the position and properties of an existing marker.
// Returns os.ErrNotExist when no marker has the given id.
func (s *Store) Update(id int, m Marker) (Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.markers {
		if s.markers[i].ID != id {
			continue
		}
		s.markers[i].Lat = m.Lat
		s.markers[i].Lng = m.Lng
		if m.Properties != nil {
			s.markers[i].Properties = m.Properties
		} else {
			s.markers[i].Properties = make(map[string]any)
		}
		if err := s.saveLocked(); err != nil {
			return Marker{}, err
		}
		return s.markers[i], nil
	}
	return Marker{}, os.ErrNotExist
}

// Delete removes a marker by id. Returns os.ErrNotExist when absent.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.markers {
		if m.ID == id {
			s.markers = append(s.markers[:i], s.markers[i+1:]...)
			return s.saveLocked()
		}
	}
	return os.ErrNotExist
}
