package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"

	"monthload/internal/domain"
)

// Compile-time interface check.
var _ Loader = (*SnowflakeLoader)(nil)

// SnowflakeLoader bulk-loads artifact files into Snowflake using the table
// stage: PUT uploads the file, COPY INTO ingests it. COPY is transactional
// on the Snowflake side, so a failed load commits nothing.
type SnowflakeLoader struct {
	creds domain.Credentials
	log   *slog.Logger
}

// NewSnowflakeLoader creates a loader for the given credentials.
func NewSnowflakeLoader(creds domain.Credentials) *SnowflakeLoader {
	return &SnowflakeLoader{
		creds: creds,
		log:   slog.Default().With("loader", "snowflake"),
	}
}

// Load uploads the artifact at path and copies it into table. One database
// connection is used for the whole operation and closed on every exit path.
func (l *SnowflakeLoader) Load(ctx context.Context, path, table string) (int64, error) {
	dsn, err := sf.DSN(&sf.Config{
		Account:   l.creds.Account,
		User:      l.creds.User,
		Password:  l.creds.Password,
		Warehouse: l.creds.Warehouse,
		Database:  l.creds.Database,
		Schema:    l.creds.Schema,
		Role:      l.creds.Role,
	})
	if err != nil {
		return 0, &LoadError{Kind: KindInternal, Err: fmt.Errorf("building DSN: %w", err)}
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return 0, &LoadError{Kind: KindInternal, Err: fmt.Errorf("opening connection: %w", err)}
	}
	defer db.Close()

	// Pin the whole load to a single session.
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, classify(fmt.Errorf("connecting: %w", err), err)
	}
	defer conn.Close()

	if err := l.ensureTable(ctx, conn, table); err != nil {
		return 0, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, &LoadError{Kind: KindInternal, Err: fmt.Errorf("resolving artifact path: %w", err)}
	}

	put := fmt.Sprintf("PUT file://%s @%%%s OVERWRITE = TRUE AUTO_COMPRESS = TRUE", abs, table)
	if _, err := conn.ExecContext(ctx, put); err != nil {
		return 0, classify(fmt.Errorf("staging artifact: %w", err), err)
	}

	copySQL := copyStatement(table, abs)
	rows, err := conn.QueryContext(ctx, copySQL)
	if err != nil {
		return 0, classify(fmt.Errorf("copying into %s: %w", table, err), err)
	}
	defer rows.Close()

	loaded, err := rowsLoaded(rows)
	if err != nil {
		return 0, &LoadError{Kind: KindInternal, Err: err}
	}

	l.log.Info("bulk load committed", "table", table, "rows", loaded)
	return loaded, nil
}

// ensureTable creates the target table when it does not exist yet, matching
// the artifact column layout.
func (l *SnowflakeLoader) ensureTable(ctx context.Context, conn *sql.Conn, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id STRING,
		value STRING,
		captured_at TIMESTAMP_NTZ
	)`, table)
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return classify(fmt.Errorf("ensuring table %s: %w", table, err), err)
	}
	return nil
}

// copyStatement builds the COPY INTO for the staged artifact. PURGE removes
// the staged copy after a successful load; the local artifact is untouched.
func copyStatement(table, artifactPath string) string {
	staged := filepath.Base(artifactPath)
	if strings.HasSuffix(staged, ".parquet") {
		return fmt.Sprintf(
			`COPY INTO %s FROM @%%%s/%s FILE_FORMAT = (TYPE = PARQUET) MATCH_BY_COLUMN_NAME = CASE_INSENSITIVE PURGE = TRUE`,
			table, table, staged)
	}
	// PUT compresses CSV files on upload.
	return fmt.Sprintf(
		`COPY INTO %s FROM @%%%s/%s.gz FILE_FORMAT = (TYPE = CSV SKIP_HEADER = 1 FIELD_OPTIONALLY_ENCLOSED_BY = '"') PURGE = TRUE`,
		table, table, staged)
}

// rowsLoaded sums the rows_loaded column of a COPY INTO result set.
func rowsLoaded(rows *sql.Rows) (int64, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("reading copy result columns: %w", err)
	}

	idx := -1
	for i, c := range cols {
		if strings.EqualFold(c, "rows_loaded") {
			idx = i
			break
		}
	}

	var total int64
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return 0, fmt.Errorf("scanning copy result: %w", err)
		}
		if idx >= 0 {
			total += asInt64(vals[idx])
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating copy result: %w", err)
	}
	return total, nil
}

// asInt64 coerces the driver's representation of rows_loaded to an int64.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		var out int64
		fmt.Sscanf(n, "%d", &out)
		return out
	case []byte:
		var out int64
		fmt.Sscanf(string(n), "%d", &out)
		return out
	default:
		return 0
	}
}

// Snowflake server error codes used for classification.
const (
	errIncorrectCredentials = 390100 // incorrect username or password
	errRoleNotGranted       = 390189
	errObjectNotExist       = 2003 // SQL compilation: object does not exist
	errInvalidIdentifier    = 904  // SQL compilation: invalid identifier
	errCompilation          = 1003 // SQL compilation error
)

// classify maps a driver error to a *LoadError. wrapped carries the call
// context; cause is inspected for the driver/network type.
func classify(wrapped, cause error) error {
	var se *sf.SnowflakeError
	if errors.As(cause, &se) {
		switch {
		case se.Number >= errIncorrectCredentials && se.Number <= errRoleNotGranted:
			return &LoadError{Kind: KindAuth, Err: wrapped}
		case se.Number == errObjectNotExist || se.Number == errInvalidIdentifier || se.Number == errCompilation:
			return &LoadError{Kind: KindSchema, Err: wrapped}
		}
	}

	if errors.Is(cause, context.Canceled) {
		return &LoadError{Kind: KindInternal, Err: wrapped}
	}

	var ne net.Error
	if errors.As(cause, &ne) || errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, driver.ErrBadConn) {
		return &LoadError{Kind: KindConnectivity, Err: wrapped}
	}
	if se != nil {
		// Remaining server-side errors are not transient.
		return &LoadError{Kind: KindInternal, Err: wrapped}
	}
	// Unrecognised errors from the transport path default to transient.
	return &LoadError{Kind: KindConnectivity, Err: wrapped}
}
