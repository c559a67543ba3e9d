package manager

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"workerd/pkg/types"
)

// SaveReports writes the latest report per model to path as JSON. An empty
// path is a no-op.
func (m *Manager) SaveReports(path string) error {
	if path == "" {
		return nil
	}
	snap := m.PerformanceReports()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// LoadReports merges reports saved by SaveReports. A saved report only
// replaces an in-memory one that is older. A missing file is not an error.
func (m *Manager) LoadReports(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	var data map[string]types.ExecutionReport
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return err
	}
	m.reportsMu.Lock()
	defer m.reportsMu.Unlock()
	for id, r := range data {
		if cur, ok := m.reports[id]; ok && !cur.Timestamp.Before(r.Timestamp) {
			continue
		}
		m.reports[id] = r
	}
	return nil
}
