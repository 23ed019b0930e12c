// Package stats defines the catalog of PostgreSQL server statistics tracked
// by the exporter and the queries used to read them.
package stats

import "fmt"

// Kind distinguishes point-in-time readings from cumulative counters that
// pg_stat_reset() can snap back toward zero.
type Kind int

const (
	// Gauge readings are republished as-is.
	Gauge Kind = iota
	// ResettableCounter readings pass through the monotone reconciler
	// before being published.
	ResettableCounter
)

// Stat describes one tracked statistic. Key is stable per logical counter
// and doubles as the reconciliation key; no two stats may share one.
type Stat struct {
	Key   string
	Kind  Kind
	Query string
	Help  string
	Unit  string
}

// Catalog returns the full set of statistics tracked for one database.
// The gauge set reads current state (size, backends, locks, dead rows); the
// counter set covers the cumulative columns of pg_stat_database and
// pg_stat_bgwriter.
//
// Queries interpolate the database name directly. It comes from operator
// configuration validated at load time, never from request input.
func Catalog(database string) []Stat {
	return []Stat{
		{
			Key:   "size",
			Kind:  Gauge,
			Query: fmt.Sprintf("SELECT pg_database_size('%s')", database),
			Help:  "The database size.",
			Unit:  "bytes",
		},
		{
			Key:   "connections",
			Kind:  Gauge,
			Query: DBStatQuery(database, "SUM(numbackends)"),
			Help:  "Number of active connections to the given db.",
		},
		{
			Key:  "locks",
			Kind: Gauge,
			Query: fmt.Sprintf(
				"SELECT count(*) FROM pg_locks l JOIN pg_database d ON l.database = d.oid WHERE d.datname = '%s'", database),
			Help: "Number of locks on the given db.",
		},
		{
			Key:   "rows_dead",
			Kind:  Gauge,
			Query: UserTableQuery("SUM(n_dead_tup)"),
			Help:  "Total number of dead rows in the current database.",
		},
		{
			Key:   "blocks_hits",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "blks_hit"),
			Help:  "Number of times disk blocks were found already in the buffer cache, so that a read was not necessary.",
		},
		{
			Key:   "blocks_reads",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "blks_read"),
			Help:  "Number of disk blocks read in this database.",
		},
		{
			Key:   "transactions",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "xact_commit + xact_rollback"),
			Help:  "Total number of transactions executed (commits + rollbacks).",
		},
		{
			Key:   "temp_writes",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "temp_bytes"),
			Help:  "The total amount of temporary writes to disk to execute queries.",
			Unit:  "bytes",
		},
		{
			Key:   "rows_fetched",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "tup_fetched"),
			Help:  "Number of rows fetched from the db.",
		},
		{
			Key:   "rows_inserted",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "tup_inserted"),
			Help:  "Number of rows inserted into the db.",
		},
		{
			Key:   "rows_updated",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "tup_updated"),
			Help:  "Number of rows updated in the db.",
		},
		{
			Key:   "rows_deleted",
			Kind:  ResettableCounter,
			Query: DBStatQuery(database, "tup_deleted"),
			Help:  "Number of rows deleted from the db.",
		},
		{
			Key:   "checkpoints_timed",
			Kind:  ResettableCounter,
			Query: BgWriterQuery("checkpoints_timed"),
			Help:  "Number of scheduled checkpoints performed.",
		},
		{
			Key:   "checkpoints_requested",
			Kind:  ResettableCounter,
			Query: BgWriterQuery("checkpoints_req"),
			Help:  "Number of requested checkpoints performed.",
		},
		{
			Key:   "buffers_checkpoint",
			Kind:  ResettableCounter,
			Query: BgWriterQuery("buffers_checkpoint"),
			Help:  "Number of buffers written during checkpoints.",
		},
		{
			Key:   "buffers_clean",
			Kind:  ResettableCounter,
			Query: BgWriterQuery("buffers_clean"),
			Help:  "Number of buffers written by the background writer.",
		},
		{
			Key:   "buffers_backend",
			Kind:  ResettableCounter,
			Query: BgWriterQuery("buffers_backend"),
			Help:  "Number of buffers written directly by a backend.",
		},
	}
}

// DBStatQuery selects one expression from pg_stat_database for the named
// database.
func DBStatQuery(database, expr string) string {
	return fmt.Sprintf("SELECT %s FROM pg_stat_database WHERE datname = '%s'", expr, database)
}

// BgWriterQuery selects one column from the single-row pg_stat_bgwriter view.
func BgWriterQuery(column string) string {
	return fmt.Sprintf("SELECT %s FROM pg_stat_bgwriter", column)
}

// UserTableQuery aggregates one expression across pg_stat_user_tables.
func UserTableQuery(expr string) string {
	return fmt.Sprintf("SELECT %s FROM pg_stat_user_tables", expr)
}
