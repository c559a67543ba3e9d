package manager

import (
	"sort"
	"time"

	"workerd/internal/backend"
	"workerd/pkg/types"
)

// modelKey is the id a model is tracked under.
func modelKey(mdl types.Model) string {
	switch {
	case mdl.ID != "":
		return mdl.ID
	case mdl.Name != "":
		return mdl.Name
	}
	return mdl.Path
}

// touchModelLocked creates or refreshes the metadata entry for mdl.
// Caller holds m.mu.
func (m *Manager) touchModelLocked(mdl types.Model, t backend.ModelType, estMB int, created bool, now time.Time) {
	id := modelKey(mdl)
	md, ok := m.models[id]
	if !ok {
		name := mdl.Name
		if name == "" {
			name = id
		}
		md = &ModelMetadata{
			ID:                   id,
			Name:                 name,
			Type:                 t,
			RequiresAcceleration: mdl.RequiresAcceleration || t.RequiresAcceleration(),
			FirstSeen:            now,
		}
		m.models[id] = md
	}
	if estMB > 0 {
		md.EstimatedMemoryMB = estMB
	}
	md.LastUsed = now
	md.Uses++
	if created {
		md.WorkersCreated++
	}
}

// Model returns the metadata recorded for a model id.
func (m *Manager) Model(id string) (ModelMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.models[id]
	if !ok {
		return ModelMetadata{}, false
	}
	return *md, true
}

// Models returns metadata for every model seen so far, sorted by id.
func (m *Manager) Models() []ModelMetadata {
	m.mu.Lock()
	out := make([]ModelMetadata, 0, len(m.models))
	for _, md := range m.models {
		out = append(out, *md)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
