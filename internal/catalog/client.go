package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "github.com/snowflakedb/gosnowflake"

	"schemamirror/pkg/errors"
)

// Config holds warehouse connection configuration
type Config struct {
	Account   string
	Username  string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	Timeout   time.Duration
}

// Client issues metadata and scalar queries against the warehouse. It is a
// thin, stateless wrapper over one *sql.DB; every method is a synchronous
// request/response call.
type Client struct {
	db        *sql.DB
	config    Config
	connected bool
}

// NewClient creates a new catalog client
func NewClient(config Config) *Client {
	return &Client{config: config}
}

// NewClientWithDB wraps an existing database handle. Used by tests and by
// callers that manage the connection themselves.
func NewClientWithDB(db *sql.DB, config Config) *Client {
	return &Client{db: db, config: config, connected: true}
}

// Connect establishes a connection to the warehouse
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	return errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s&role=%s",
			c.config.Username,
			c.config.Password,
			c.config.Account,
			c.config.Database,
			c.config.Schema,
			c.config.Warehouse,
			c.config.Role,
		)

		db, err := sql.Open("snowflake", dsn)
		if err != nil {
			return errors.ConnectionError("Failed to open warehouse connection", err).
				WithContext("account", c.config.Account).
				WithContext("warehouse", c.config.Warehouse)
		}

		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)

		pingCtx, cancel := c.opContext(ctx)
		defer cancel()

		if err := db.PingContext(pingCtx); err != nil {
			db.Close()

			if strings.Contains(err.Error(), "authentication") {
				return errors.New(errors.ErrCodeAuthenticationFailed, "Authentication failed").
					WithContext("user", c.config.Username).
					WithSuggestions(
						"Verify your username and password",
						"Check if your account is locked",
						"Ensure MFA is properly configured if required",
					)
			}

			return errors.ConnectionError("Failed to connect to warehouse", err).
				WithContext("account", c.config.Account).
				AsRecoverable()
		}

		c.db = db
		c.connected = true
		return nil
	})
}

// Close closes the database connection
func (c *Client) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// opContext bounds a single statement. Long-running formula SQL would
// otherwise block the caller indefinitely.
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// ListDatabases returns accessible database names. Fails soft: on error it
// logs and returns an empty list, so callers must treat empty as unknown.
func (c *Client) ListDatabases(ctx context.Context) []string {
	names, err := c.showNames(ctx, "SHOW DATABASES")
	if err != nil {
		logrus.WithError(err).Warn("listing databases failed")
		return nil
	}
	return names
}

// ListSchemas returns schema names in a database. Fails soft.
func (c *Client) ListSchemas(ctx context.Context, database string) []string {
	names, err := c.showNames(ctx, fmt.Sprintf("SHOW SCHEMAS IN DATABASE %s", database))
	if err != nil {
		logrus.WithError(err).WithField("database", database).Warn("listing schemas failed")
		return nil
	}
	return names
}

// ListTables returns table names in a schema, prefixed with the "All"
// sentinel for selection UIs. Fails soft: on error only the sentinel remains.
func (c *Client) ListTables(ctx context.Context, database, schema string) []string {
	names, err := c.TableNames(ctx, database, schema)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"database": database,
			"schema":   schema,
		}).Warn("listing tables failed")
		return []string{AllTables}
	}
	return append([]string{AllTables}, names...)
}

// AllTables is the sentinel list entry meaning "every table"
const AllTables = "All"

// TableNames returns the table names in a schema, without the sentinel and
// with errors propagated. The cloner uses this for its count verification.
func (c *Client) TableNames(ctx context.Context, database, schema string) ([]string, error) {
	return c.showNames(ctx, fmt.Sprintf("SHOW TABLES IN SCHEMA %s.%s", database, schema))
}

// showNames executes a SHOW command and extracts the name column. SHOW
// output puts the object name in the second column.
func (c *Client) showNames(ctx context.Context, query string) ([]string, error) {
	if !c.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(opCtx, query)
	if err != nil {
		return nil, errors.QueryError("SHOW command failed", query, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}

		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		if len(values) > 1 {
			if name, ok := asString(values[1]); ok {
				names = append(names, name)
			}
		}
	}

	return names, rows.Err()
}

// DescribeTable returns the column name to declared type mapping for a
// table. The mapping is built fresh on every call so it reflects current
// state.
func (c *Client) DescribeTable(ctx context.Context, database, schema, table string) (map[string]string, error) {
	if !c.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	query := fmt.Sprintf("DESCRIBE TABLE %s.%s.%s", database, schema, table)
	rows, err := c.db.QueryContext(opCtx, query)
	if err != nil {
		return nil, errors.QueryError(fmt.Sprintf("Failed to describe table %s", table), query, err)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}

		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		// DESCRIBE TABLE reports column name and type in the first two columns
		if len(values) > 1 {
			name, nameOK := asString(values[0])
			typ, typeOK := asString(values[1])
			if nameOK && typeOK {
				columns[name] = typ
			}
		}
	}

	return columns, rows.Err()
}

// ProbeResult classifies the outcome of a table access probe
type ProbeResult int

const (
	// Readable means the trial select succeeded
	Readable ProbeResult = iota
	// DoesNotExist means the warehouse reported the object missing
	DoesNotExist
	// Unreadable means the object may exist but the trial select failed
	// (permissions, suspended warehouse, malformed identifier)
	Unreadable
)

// Probe verifies read access to a table with a trial select. Unlike a
// catalog lookup this also exercises permissions, which is what callers
// actually need to know.
func (c *Client) Probe(ctx context.Context, database, schema, table string) ProbeResult {
	if !c.connected {
		return Unreadable
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT 1 FROM %s.%s.%s LIMIT 1", database, schema, table)
	rows, err := c.db.QueryContext(opCtx, query)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "not found") {
			return DoesNotExist
		}
		logrus.WithError(err).WithField("table", table).Debug("table probe failed")
		return Unreadable
	}
	rows.Close()
	return Readable
}

// TableExists reports whether a table is readable. Callers needing to
// distinguish missing from unreadable should use Probe directly.
func (c *Client) TableExists(ctx context.Context, database, schema, table string) bool {
	return c.Probe(ctx, database, schema, table) == Readable
}

// SchemaExists reports whether a schema exists in a database
func (c *Client) SchemaExists(ctx context.Context, database, schema string) (bool, error) {
	names, err := c.showNames(ctx, fmt.Sprintf("SHOW SCHEMAS LIKE '%s' IN DATABASE %s", schema, database))
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// CloneSchema issues a create-or-replace clone of source into target.
// Snapshot semantics (copy-on-write, point-in-time) are the warehouse's.
func (c *Client) CloneSchema(ctx context.Context, database, source, target string) error {
	if !c.connected {
		return errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	stmt := fmt.Sprintf("CREATE OR REPLACE SCHEMA %s.%s CLONE %s.%s", database, target, database, source)
	if _, err := c.db.ExecContext(opCtx, stmt); err != nil {
		return errors.Wrap(err, errors.ErrCodeCloneFailed, fmt.Sprintf("Failed to clone schema %s.%s", database, source)).
			WithContext("target", target)
	}
	return nil
}

// QueryScalar executes a query and returns the first column of the first
// row. found is false when the query returned no rows.
func (c *Client) QueryScalar(ctx context.Context, query string) (value interface{}, found bool, err error) {
	if !c.connected {
		return nil, false, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	opCtx, cancel := c.opContext(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(opCtx, query)
	if err != nil {
		return nil, false, errors.QueryError("Query execution failed", query, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Err()
	}

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	values := make([]interface{}, len(cols))
	valuePtrs := make([]interface{}, len(cols))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, false, err
	}

	return values[0], true, nil
}

// Query executes an arbitrary query, returning the rows for the caller to
// scan. The caller owns closing the rows. No statement timeout is applied
// here since the rows outlive the call; bound the passed context instead.
func (c *Client) Query(ctx context.Context, query string) (*sql.Rows, error) {
	if !c.connected {
		return nil, errors.New(errors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return c.db.QueryContext(ctx, query)
}

// ValidateConfig validates the warehouse connection configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return fmt.Errorf("account is required")
	}
	if config.Username == "" {
		return fmt.Errorf("username is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Warehouse == "" {
		return fmt.Errorf("warehouse is required")
	}
	return nil
}

// asString normalizes driver values that may arrive as string or []byte
func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
