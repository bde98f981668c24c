package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MemoryBackend is an in-process table implementing Backend. It mirrors the
// spreadsheet-style contract exactly, including an arbitrary header, so it can
// hold rows written with an older column set.
type MemoryBackend struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	fail   error
	closed bool
}

// NewMemoryBackend creates an empty table. With no header, Columns is used.
func NewMemoryBackend(header ...string) *MemoryBackend {
	if len(header) == 0 {
		header = Columns
	}
	return &MemoryBackend{header: append([]string(nil), header...)}
}

// Fail makes every subsequent call return err, simulating a lost connection.
// A nil err restores the backend.
func (m *MemoryBackend) Fail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Len returns the number of data rows.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MemoryBackend) ready() error {
	if m.closed {
		return errors.New("memory backend closed")
	}
	return m.fail
}

// Values implements Backend.
func (m *MemoryBackend) Values(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(m.rows)+1)
	out = append(out, append([]string(nil), m.header...))
	for _, r := range m.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out, nil
}

// AppendRow implements Backend. values are laid out by Columns and projected
// onto the table's own header; columns the header lacks, such as key on a
// legacy table, are added first.
func (m *MemoryBackend) AppendRow(_ context.Context, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	for i := range values {
		if i < len(Columns) {
			m.column(Columns[i])
		}
	}
	byName := make(map[string]string, len(values))
	for i, v := range values {
		if i < len(Columns) {
			byName[Columns[i]] = v
		}
	}
	row := make([]string, len(m.header))
	for i, name := range m.header {
		row[i] = byName[name]
	}
	m.rows = append(m.rows, row)
	return nil
}

// AppendRaw appends cells as-is, in header order. It is meant for seeding
// legacy data.
func (m *MemoryBackend) AppendRaw(cells ...string) {
	m.mu.Lock()
	m.rows = append(m.rows, append([]string(nil), cells...))
	m.mu.Unlock()
}

// UpdateCells implements Backend. Columns absent from the header are added.
func (m *MemoryBackend) UpdateCells(_ context.Context, row int, cells map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	i, err := m.index(row)
	if err != nil {
		return err
	}
	for name, v := range cells {
		col := m.column(name)
		for len(m.rows[i]) <= col {
			m.rows[i] = append(m.rows[i], "")
		}
		m.rows[i][col] = v
	}
	return nil
}

// DeleteRow implements Backend.
func (m *MemoryBackend) DeleteRow(_ context.Context, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	i, err := m.index(row)
	if err != nil {
		return err
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) index(row int) (int, error) {
	i := row - HeaderRow - 1
	if i < 0 || i >= len(m.rows) {
		return 0, fmt.Errorf("%w: row %d", ErrNotFound, row)
	}
	return i, nil
}

func (m *MemoryBackend) column(name string) int {
	for i, h := range m.header {
		if h == name {
			return i
		}
	}
	m.header = append(m.header, name)
	return len(m.header) - 1
}
