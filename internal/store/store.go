package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Column names of the row contract, in storage order.
const (
	ColX1               = "x1"
	ColY1               = "y1"
	ColX2               = "x2"
	ColY2               = "y2"
	ColLabel            = "label"
	ColFluidType        = "fluidType"
	ColArea             = "area"
	ColInstallationType = "installationType"
	ColMachineID        = "machineId"
	ColSeverity         = "severity"
	ColCategory         = "category"
	ColFlowRateRange    = "flowRateRange"
	ColAnnualCost       = "annualCost"
	ColState            = "state"
	ColKey              = "key"
)

// Columns is the full header, in order.
var Columns = []string{
	ColX1, ColY1, ColX2, ColY2, ColLabel, ColFluidType, ColArea, ColInstallationType,
	ColMachineID, ColSeverity, ColCategory, ColFlowRateRange, ColAnnualCost, ColState, ColKey,
}

// Defaults applied to cells missing on read.
const (
	DefaultCell     = "N/A"
	DefaultSeverity = "Medium"
)

var (
	// ErrUnavailable is returned once the backend has failed. It is sticky.
	ErrUnavailable = errors.New("zone store unavailable")

	// ErrNotFound is returned for row ids out of range and unknown keys.
	ErrNotFound = errors.New("zone not found")

	// ErrUnknownColumn is returned for updates naming a column outside Columns.
	ErrUnknownColumn = errors.New("unknown zone column")
)

// HeaderRow is the 1-based address of the header.
const HeaderRow = 1

// RowFor returns the 1-based backend row of snapshot id.
func RowFor(id int) int { return id + HeaderRow + 1 }

// Backend is the tabular persistence contract. Row numbers are 1-based and
// row 1 is the header. Implementations return ErrNotFound for rows that do
// not exist; any other error is treated as loss of the backend.
type Backend interface {
	// Values returns the header followed by every data row, in order.
	Values(ctx context.Context) ([][]string, error)
	// AppendRow adds a row after the last one. values follow Columns.
	AppendRow(ctx context.Context, values []string) error
	// UpdateCells overwrites the named columns of row.
	UpdateCells(ctx context.Context, row int, cells map[string]string) error
	// DeleteRow removes row, shifting later rows up.
	DeleteRow(ctx context.Context, row int) error
	// Close releases backend resources.
	Close() error
}

// Observer receives the outcome of every store operation.
type Observer interface {
	ObserveStore(op string, err error)
}

// Row is one raw zone row keyed by column name.
type Row map[string]string

// Get returns the cell for col, or "" if absent.
func (r Row) Get(col string) string { return r[col] }

// Values returns the row's cells in Columns order.
func (r Row) Values() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r[c]
	}
	return out
}

// Store adapts a Backend to the zone registry. A Store is meant for one editing
// session; it is safe for concurrent use but performs no conflict detection.
type Store struct {
	backend  Backend
	observer Observer

	mu  sync.Mutex
	err error
}

// Option configures a Store.
type Option func(*Store)

// WithObserver reports every operation outcome to o.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// New wraps backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether the backend is still usable.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err == nil
}

// Err returns the backend failure that made the store unavailable, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// LoadAll reads every row in store order. On backend failure it returns an
// empty slice and an error matching ErrUnavailable; partial data is never
// returned.
func (s *Store) LoadAll(ctx context.Context) (rows []Row, err error) {
	defer func() { s.observe("load", err) }()
	if err := s.check(); err != nil {
		return []Row{}, err
	}

	values, err := s.backend.Values(ctx)
	if err != nil {
		return []Row{}, s.fail("load", err)
	}
	if len(values) == 0 {
		return []Row{}, nil
	}

	header := values[0]
	rows = make([]Row, 0, len(values)-1)
	for _, cells := range values[1:] {
		rows = append(rows, decodeRow(header, cells))
	}
	return rows, nil
}

// Append adds row as the newest zone.
func (s *Store) Append(ctx context.Context, row Row) (err error) {
	defer func() { s.observe("append", err) }()
	if err := s.check(); err != nil {
		return err
	}
	if err := s.backend.AppendRow(ctx, row.Values()); err != nil {
		return s.fail("append", err)
	}
	return nil
}

// UpdateFields overwrites the named columns of the zone with snapshot id.
// id must come from the latest LoadAll; a stale id silently updates whichever
// zone now occupies that position.
func (s *Store) UpdateFields(ctx context.Context, id int, fields map[string]string) (err error) {
	defer func() { s.observe("update", err) }()
	if err := s.check(); err != nil {
		return err
	}
	if err := validateColumns(fields); err != nil {
		return err
	}
	if id < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if len(fields) == 0 {
		return nil
	}
	return s.mutate("update", s.backend.UpdateCells(ctx, RowFor(id), fields))
}

// Delete removes the zone with snapshot id. Every cached id greater than id is
// invalid afterwards; callers must reload before reusing any id.
func (s *Store) Delete(ctx context.Context, id int) (err error) {
	defer func() { s.observe("delete", err) }()
	if err := s.check(); err != nil {
		return err
	}
	if id < 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.mutate("delete", s.backend.DeleteRow(ctx, RowFor(id)))
}

// UpdateByKey overwrites the named columns of the zone whose key column equals
// key. The row is resolved from a fresh read.
func (s *Store) UpdateByKey(ctx context.Context, key string, fields map[string]string) (err error) {
	defer func() { s.observe("update_by_key", err) }()
	if err := validateColumns(fields); err != nil {
		return err
	}
	row, err := s.resolveKey(ctx, key)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	return s.mutate("update", s.backend.UpdateCells(ctx, row, fields))
}

// DeleteByKey removes the zone whose key column equals key.
func (s *Store) DeleteByKey(ctx context.Context, key string) (err error) {
	defer func() { s.observe("delete_by_key", err) }()
	row, err := s.resolveKey(ctx, key)
	if err != nil {
		return err
	}
	return s.mutate("delete", s.backend.DeleteRow(ctx, row))
}

// resolveKey maps key to its current 1-based backend row.
func (s *Store) resolveKey(ctx context.Context, key string) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, fmt.Errorf("%w: empty key", ErrNotFound)
	}
	values, err := s.backend.Values(ctx)
	if err != nil {
		return 0, s.fail("resolve key", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: key %s", ErrNotFound, key)
	}
	col := -1
	for i, name := range values[0] {
		if name == ColKey {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("%w: key %s (backend has no key column)", ErrNotFound, key)
	}
	for i, cells := range values[1:] {
		if col < len(cells) && cells[col] == key {
			return RowFor(i), nil
		}
	}
	return 0, fmt.Errorf("%w: key %s", ErrNotFound, key)
}

func (s *Store) mutate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return s.fail(op, err)
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, s.err)
	}
	return nil
}

// fail records the first backend failure and makes the store unavailable.
func (s *Store) fail(op string, err error) error {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
		log.Printf("zone store unavailable after %s: %v", op, err)
	}
	s.mu.Unlock()
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *Store) observe(op string, err error) {
	if s.observer != nil {
		s.observer.ObserveStore(op, err)
	}
}

func validateColumns(fields map[string]string) error {
	for name := range fields {
		if !isColumn(name) {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
	}
	return nil
}

func isColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// decodeRow maps cells onto header names and fills missing columns.
func decodeRow(header, cells []string) Row {
	row := make(Row, len(Columns))
	for i, name := range header {
		if i < len(cells) {
			row[name] = cells[i]
		}
	}
	for _, c := range Columns {
		if _, ok := row[c]; ok {
			continue
		}
		switch c {
		case ColSeverity:
			row[c] = DefaultSeverity
		case ColKey:
			row[c] = ""
		default:
			row[c] = DefaultCell
		}
	}
	return row
}
