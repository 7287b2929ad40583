// Package query answers dashboard searches over the in-memory log store.
package query

import (
	"strings"

	"github.com/logharbor/logharbor/internal/model"
	"github.com/logharbor/logharbor/internal/store"
)

// Result is one search answer. Total is the store's current retained length;
// Returned counts the records left after windowing and filtering.
type Result struct {
	Total    int            `json:"total"`
	Returned int            `json:"returned"`
	Records  []model.Record `json:"logs"`
}

// Engine runs substring searches against store snapshots.
type Engine struct {
	store *store.LogStore
}

// NewEngine wires an engine to its store.
func NewEngine(st *store.LogStore) *Engine {
	return &Engine{store: st}
}

// Run selects the newest limit records, oldest first, then keeps those whose
// serialized JSON contains filter case-insensitively. The filter applies
// inside the already-cut window: an older match beyond the newest limit
// records is never pulled in.
func (e *Engine) Run(filter string, limit int) Result {
	snap := e.store.Snapshot()
	total := len(snap)

	if limit < 0 {
		limit = 0
	}
	if limit > total {
		limit = total
	}
	window := snap[total-limit:]

	if filter == "" {
		return Result{Total: total, Returned: len(window), Records: window}
	}

	needle := strings.ToLower(filter)
	matched := make([]model.Record, 0, len(window))
	for _, rec := range window {
		if strings.Contains(strings.ToLower(string(rec.JSON())), needle) {
			matched = append(matched, rec)
		}
	}
	return Result{Total: total, Returned: len(matched), Records: matched}
}
