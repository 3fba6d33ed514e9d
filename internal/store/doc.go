// Package store applies planned write operations to a SQL table and serves
// existing-record lookups.
//
// Each stored row belongs to a dataset and is addressed by its row id, the
// identity hash of the fields the active planner declares (the key fields
// unless the planner keeps several rows per key). Rows also carry the key
// hash, so every version of a key can be fetched with one indexed lookup.
//
// # Table Layout
//
//	dataset   dataset name
//	row_id    identity hash (hex SHA-256)
//	key_hash  key hash (hex SHA-256)
//	payload   canonical JSON of the record
//	seq       write order within the dataset
//
// # Drivers
//
//   - sqlite3 (default): WAL mode, single writer connection
//   - postgres: github.com/lib/pq
//   - mysql: github.com/go-sql-driver/mysql
//
// Apply validates every planned record before the first statement runs, and
// all writes of one call share a transaction.
package store
