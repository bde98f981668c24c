// Package store is the CRUD boundary between the zone registry and the external
// tabular backend that persists leak zones.
//
// # Row Contract
//
// The backend is an ordered table with a fixed header at row 1. The zone with
// snapshot id k lives at row k+2 (1-based, header offset 2). Columns, in order:
//
//	x1, y1, x2, y2, label, fluidType, area, installationType, machineId,
//	severity, category, flowRateRange, annualCost, state, key
//
// Cells are strings. Columns missing on read are defaulted to "N/A" (severity
// defaults to "Medium", key to empty).
//
// # Identity
//
// Snapshot ids are positional. Deleting row k shifts every later zone down by
// one, so an id taken from an older LoadAll may address a different zone. The
// ordinal operations (UpdateFields, Delete) do not detect this; they are safe
// only with a single concurrent editor that reloads after every mutation.
// UpdateByKey and DeleteByKey resolve the durable key column to a row offset
// at call time and are the safe alternative.
//
// # Failure Handling
//
// Any backend error other than ErrNotFound moves the store into a sticky
// unavailable state: LoadAll returns no rows, every call returns
// ErrUnavailable without contacting the backend, and Available reports false.
// There is no retry and no reconnect for the lifetime of the Store.
//
// # Backends
//
//   - MemoryBackend: in-process table, used by tests and demos
//   - SQLBackend via OpenSQLite: modernc.org/sqlite, pure Go
//   - SQLBackend via OpenPostgres: jackc/pgx/v5 through database/sql
package store
