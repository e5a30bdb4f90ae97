package monetdbe

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// memoryPath is the DSN that selects an in-memory database.
const memoryPath = ":memory:"

// Connector implements driver.Connector for efficient connection pooling
type Connector struct {
	driver *Driver

	// Path is the database directory; empty means in-memory.
	Path    string
	Options OpenOptions

	// Statement defaults applied to every PreparedStatement of a connection
	MaxRows           int64
	CloseOnCompletion bool

	Logger *slog.Logger
	engine Engine
}

// ConnectorOption configures a Connector
type ConnectorOption func(*Connector)

// WithLogger sets the logger connections write to. The default discards
// everything.
func WithLogger(l *slog.Logger) ConnectorOption {
	return func(c *Connector) {
		c.Logger = l
	}
}

// WithEngine replaces the native libmonetdbe binding.
func WithEngine(e Engine) ConnectorOption {
	return func(c *Connector) {
		c.engine = e
	}
}

// WithMaxRows sets the default row limit of new statements; 0 is no limit.
func WithMaxRows(n int64) ConnectorOption {
	return func(c *Connector) {
		c.MaxRows = n
	}
}

// WithMemoryLimit caps the engine memory, in megabytes.
func WithMemoryLimit(mb int) ConnectorOption {
	return func(c *Connector) {
		c.Options.MemoryLimit = mb
	}
}

// WithQueryTimeout sets the engine query timeout, in seconds.
func WithQueryTimeout(seconds int) ConnectorOption {
	return func(c *Connector) {
		c.Options.QueryTimeout = seconds
	}
}

// WithSessionTimeout sets the engine session timeout, in seconds.
func WithSessionTimeout(seconds int) ConnectorOption {
	return func(c *Connector) {
		c.Options.SessionTimeout = seconds
	}
}

// WithThreads sets the number of engine worker threads.
func WithThreads(n int) ConnectorOption {
	return func(c *Connector) {
		c.Options.Threads = n
	}
}

// WithCloseOnCompletion makes new statements close when their result does.
func WithCloseOnCompletion(on bool) ConnectorOption {
	return func(c *Connector) {
		c.CloseOnCompletion = on
	}
}

// NewConnector parses dsn and applies opts. Use it with sql.OpenDB:
//
//	connector, err := monetdbe.NewConnector(":memory:", monetdbe.WithThreads(4))
//	...
//	db := sql.OpenDB(connector)
func NewConnector(dsn string, opts ...ConnectorOption) (*Connector, error) {
	c := &Connector{driver: &Driver{}}
	if err := c.parseDSN(dsn); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.MaxRows < 0 {
		return nil, newError(CodeInvalidLength, "max rows must not be negative, got %d", c.MaxRows)
	}
	return c, nil
}

// parseDSN accepts "monetdbe:<path>?k=v", "<path>?k=v", ":memory:" or "".
func (c *Connector) parseDSN(dsn string) error {
	rest := strings.TrimPrefix(dsn, "monetdbe:")
	rest = strings.TrimPrefix(rest, "//")
	path, rawQuery, _ := strings.Cut(rest, "?")
	if path == memoryPath {
		path = ""
	}
	c.Path = path

	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return errors.Wrapf(err, "parsing dsn %q", dsn)
	}
	for key, values := range params {
		value := values[len(values)-1]
		if err := c.setParam(strings.ToLower(key), value); err != nil {
			return errors.Wrapf(err, "dsn parameter %s", key)
		}
	}
	return nil
}

func (c *Connector) setParam(key, value string) error {
	switch key {
	case "closeoncompletion":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		c.CloseOnCompletion = b
		return nil
	case "maxrows":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		c.MaxRows = n
		return nil
	}

	var target *int
	switch key {
	case "memorylimit":
		target = &c.Options.MemoryLimit
	case "querytimeout":
		target = &c.Options.QueryTimeout
	case "sessiontimeout":
		target = &c.Options.SessionTimeout
	case "nr_threads":
		target = &c.Options.Threads
	default:
		return newError(CodeNotSupported, "unknown parameter %q", key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*target = n
	return nil
}

// Connect opens the database. The native library is loaded on first use
// unless an Engine was injected.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	engine := c.engine
	if engine == nil {
		ne, err := NativeEngine()
		if err != nil {
			return nil, err
		}
		engine = ne
	}

	db, err := engine.Open(c.Path, c.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", c.displayPath())
	}
	c.Logger.Debug("database opened", "path", c.displayPath())

	return &Conn{
		engine:            engine,
		db:                db,
		logger:            c.Logger,
		maxRows:           c.MaxRows,
		closeOnCompletion: c.CloseOnCompletion,
		stmts:             make(map[*PreparedStatement]struct{}),
	}, nil
}

func (c *Connector) displayPath() string {
	if c.Path == "" {
		return memoryPath
	}
	return c.Path
}

// Driver returns the underlying Driver
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Ensure Connector implements driver.Connector
var _ driver.Connector = (*Connector)(nil)
