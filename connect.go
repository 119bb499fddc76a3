package factdf

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/stdlib"
	_ "modernc.org/sqlite"
)

// Connect opens a connection to dsn and returns its Dialect. dialect is one of clickhouse, postgres or sqlite.
func Connect(dialect, dsn string) (*Dialect, error) {
	var (
		db *sql.DB
		e  error
	)

	switch strings.ToLower(dialect) {
	case ch:
		var opts *clickhouse.Options
		if opts, e = clickhouse.ParseDSN(dsn); e != nil {
			return nil, e
		}

		if opts.Compression == nil {
			opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
		}

		db = clickhouse.OpenDB(opts)
	case pg:
		if db, e = sql.Open("pgx", dsn); e != nil {
			return nil, e
		}
	case sl, "sqlite3":
		if db, e = sql.Open("sqlite", dsn); e != nil {
			return nil, e
		}

		// a single connection keeps in-memory databases and transactions coherent
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported dialect %s", dialect)
	}

	if e = db.Ping(); e != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot connect to %s database: %w", dialect, e)
	}

	var dlct *Dialect
	if dlct, e = NewDialect(dialect, db); e != nil {
		_ = db.Close()
		return nil, e
	}

	return dlct, nil
}
