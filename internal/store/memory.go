package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps every row in a map, it is used by tests and dry runs.
type Memory struct {
	mutex   sync.RWMutex
	rows    map[string][]byte
	updates int
}

func NewMemory() *Memory {
	return &Memory{rows: map[string][]byte{}}
}

func (m *Memory) Update(ctx context.Context, updates map[string]any) error {
	writes, err := prepareWrites(updates)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, w := range writes {
		for path := range m.rows {
			if path == w.path || isAncestor(w.path, path) {
				delete(m.rows, path)
			}
		}
		m.rows[w.path] = w.value
	}
	m.updates++
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	target, err := CleanPath(path)
	if err != nil {
		return nil, false, err
	}

	m.mutex.RLock()
	var rows []row
	for p, value := range m.rows {
		if related(p, target) {
			rows = append(rows, row{path: p, value: value})
		}
	}
	m.mutex.RUnlock()

	return assemble(target, rows)
}

// Updates returns how many updates were applied.
func (m *Memory) Updates() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.updates
}

func (m *Memory) Close() error {
	return nil
}
