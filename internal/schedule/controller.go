package schedule

import (
	"context"
	"log/slog"
	"sync"
)

// API is the slice of the backend the manager needs.
// Implemented by api.Client.
type API interface {
	Schedules(ctx context.Context) ([]Schedule, error)
	CreateSchedule(ctx context.Context, req CreateRequest) (string, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// Manager owns the schedule list and its create/delete operations.
// Mutations re-fetch the list so displayed state always comes from the
// backend.
type Manager struct {
	api API
	log *slog.Logger

	mu        sync.Mutex
	schedules []Schedule
	loading   bool
	creating  bool
	deleting  string // id mid-delete, "" when none
}

func NewManager(api API, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{api: api, log: log}
}

// Fetch refreshes the schedule list. On error it logs, leaves the
// stored list unchanged, and returns an empty slice.
func (m *Manager) Fetch(ctx context.Context) []Schedule {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	fetched, err := m.api.Schedules(ctx)
	if err != nil {
		m.log.Warn("fetching schedules failed", "error", err)
		return []Schedule{}
	}
	if fetched == nil {
		fetched = []Schedule{}
	}

	m.mu.Lock()
	m.schedules = fetched
	m.mu.Unlock()

	out := make([]Schedule, len(fetched))
	copy(out, fetched)
	return out
}

// Schedules returns a copy of the last fetched list.
func (m *Manager) Schedules() []Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Schedule, len(m.schedules))
	copy(out, m.schedules)
	return out
}

// IsLoading reports whether a Fetch is outstanding.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// IsCreating reports whether a Create is outstanding.
func (m *Manager) IsCreating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creating
}

// DeletingID returns the id of the schedule currently being deleted, or
// "" when none is.
func (m *Manager) DeletingID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleting
}

// Create validates and submits a new schedule, then re-fetches the
// list. Returns false on validation or backend failure.
func (m *Manager) Create(ctx context.Context, req CreateRequest) bool {
	if err := req.Validate(); err != nil {
		m.log.Warn("rejecting invalid schedule", "error", err)
		return false
	}

	m.mu.Lock()
	m.creating = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.creating = false
		m.mu.Unlock()
	}()

	id, err := m.api.CreateSchedule(ctx, req)
	if err != nil {
		m.log.Warn("creating schedule failed", "error", err)
		return false
	}
	m.log.Info("schedule created", "schedule_id", id, "type", string(req.Type))

	m.Fetch(ctx)
	return true
}

// Delete removes a schedule by id, then re-fetches the list.
func (m *Manager) Delete(ctx context.Context, id string) bool {
	m.mu.Lock()
	m.deleting = id
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.deleting = ""
		m.mu.Unlock()
	}()

	if err := m.api.DeleteSchedule(ctx, id); err != nil {
		m.log.Warn("deleting schedule failed", "schedule_id", id, "error", err)
		return false
	}

	m.Fetch(ctx)
	return true
}
