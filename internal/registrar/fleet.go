package registrar

import (
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/jq/internal/model"
)

type member struct {
	worker   model.Worker
	lastSeen time.Time
}

// Fleet tracks announced workers and when each was last heard from
type Fleet struct {
	mu      sync.RWMutex
	members map[string]*member
}

// NewFleet creates an empty fleet
func NewFleet() *Fleet {
	return &Fleet{members: make(map[string]*member)}
}

// Add records a worker announcement. Re-announcing replaces the record.
func (f *Fleet) Add(w model.Worker, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[w.ID] = &member{worker: w, lastSeen: now}
}

// Touch marks a worker as alive; it reports false for unknown workers
func (f *Fleet) Touch(id string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.members[id]
	if !ok {
		return false
	}
	m.lastSeen = now
	return true
}

// Remove forgets a worker
func (f *Fleet) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, id)
}

// Expire removes workers not heard from within timeout and returns their ids
func (f *Fleet) Expire(now time.Time, timeout time.Duration) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var dropped []string
	for id, m := range f.members {
		if now.Sub(m.lastSeen) > timeout {
			delete(f.members, id)
			dropped = append(dropped, id)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// Workers returns the current members ordered by id
func (f *Fleet) Workers() []model.Worker {
	f.mu.RLock()
	defer f.mu.RUnlock()

	workers := make([]model.Worker, 0, len(f.members))
	for _, m := range f.members {
		workers = append(workers, m.worker)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers
}

// TotalProcesses is the number of pollers across the fleet
func (f *Fleet) TotalProcesses() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := 0
	for _, m := range f.members {
		total += m.worker.Processes
	}
	return total
}
