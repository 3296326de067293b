package services

import (
	"sort"
	"sync"

	"ticket-console/monitoring"
)

// ViewRegistry owns one EventView per event id. Views are created on first
// use and live until dropped.
type ViewRegistry struct {
	deps Deps

	mu    sync.Mutex
	views map[string]*EventView
}

func NewViewRegistry(deps Deps) *ViewRegistry {
	return &ViewRegistry{deps: deps, views: make(map[string]*EventView)}
}

func (r *ViewRegistry) Get(eventID string) *EventView {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[eventID]
	if !ok {
		v = NewEventView(eventID, r.deps)
		r.views[eventID] = v
	}
	return v
}

// Drop forgets an event's view, including its booking draft.
func (r *ViewRegistry) Drop(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.views[eventID]
	delete(r.views, eventID)
	return ok
}

// Views returns the held views ordered by event id.
func (r *ViewRegistry) Views() []*EventView {
	r.mu.Lock()
	views := make([]*EventView, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	r.mu.Unlock()

	sort.Slice(views, func(i, j int) bool { return views[i].eventID < views[j].eventID })
	return views
}

// ViewStats implements monitoring.ViewSource over the loaded views.
func (r *ViewRegistry) ViewStats() []monitoring.ViewStats {
	var out []monitoring.ViewStats
	for _, v := range r.Views() {
		if s, ok := v.Stats(); ok {
			out = append(out, s)
		}
	}
	return out
}
