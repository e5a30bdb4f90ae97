package monetdbe

import (
	"context"
	"database/sql/driver"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DSN parsing tests
// =============================================================================

func TestNewConnectorDSN(t *testing.T) {
	tests := []struct {
		dsn      string
		path     string
		options  OpenOptions
		maxRows  int64
		closeOnC bool
	}{
		{"", "", OpenOptions{}, 0, false},
		{":memory:", "", OpenOptions{}, 0, false},
		{"monetdbe::memory:", "", OpenOptions{}, 0, false},
		{"/var/lib/farm", "/var/lib/farm", OpenOptions{}, 0, false},
		{"monetdbe:///var/lib/farm", "/var/lib/farm", OpenOptions{}, 0, false},
		{
			"monetdbe:///data/db?memorylimit=512&nr_threads=4&querytimeout=30&sessiontimeout=60",
			"/data/db",
			OpenOptions{MemoryLimit: 512, Threads: 4, QueryTimeout: 30, SessionTimeout: 60},
			0, false,
		},
		{":memory:?maxrows=100&closeOnCompletion=true", "", OpenOptions{}, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			c, err := NewConnector(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.path, c.Path)
			assert.Equal(t, tt.options, c.Options)
			assert.Equal(t, tt.maxRows, c.MaxRows)
			assert.Equal(t, tt.closeOnC, c.CloseOnCompletion)
			assert.NotNil(t, c.Logger)
		})
	}
}

func TestNewConnectorInvalidDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		code ErrorCode
	}{
		{":memory:?bogus=1", CodeNotSupported},
		{":memory:?bogus=x", CodeNotSupported},
		{":memory:?memorylimit=lots", ""},
		{":memory:?maxrows=-5", CodeInvalidLength},
		{":memory:?closeoncompletion=sometimes", ""},
		{":memory:?a=%zz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			_, err := NewConnector(tt.dsn)
			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, Code(err))
			}
		})
	}
}

func TestConnectorOptions(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	c, err := NewConnector("/db?memorylimit=1",
		WithLogger(logger),
		WithMaxRows(10),
		WithMemoryLimit(256),
		WithQueryTimeout(5),
		WithSessionTimeout(7),
		WithThreads(2),
		WithCloseOnCompletion(true),
	)
	require.NoError(t, err)
	assert.Same(t, logger, c.Logger)
	assert.Equal(t, int64(10), c.MaxRows)
	assert.Equal(t, OpenOptions{MemoryLimit: 256, QueryTimeout: 5, SessionTimeout: 7, Threads: 2}, c.Options)
	assert.True(t, c.CloseOnCompletion)

	_, err = NewConnector("", WithMaxRows(-1))
	assert.ErrorIs(t, err, ErrInvalidLength)
}

// =============================================================================
// Connect tests
// =============================================================================

func TestConnectPassesOptions(t *testing.T) {
	e := newFakeEngine()
	c, err := NewConnector("/data?nr_threads=3", WithEngine(e))
	require.NoError(t, err)

	dc, err := c.Connect(context.Background())
	require.NoError(t, err)
	defer dc.Close()

	conn := dc.(*Conn)
	assert.True(t, conn.IsValid())
	assert.Equal(t, OpenOptions{Threads: 3}, e.open[conn.db])
	assert.IsType(t, &Driver{}, c.Driver())
}

func TestConnectFailure(t *testing.T) {
	c, err := NewConnector("/nonexistent/db", WithEngine(newFakeEngine()))
	require.NoError(t, err)

	_, err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.Contains(t, err.Error(), "/nonexistent/db")
}

func TestConnectCanceledContext(t *testing.T) {
	c, err := NewConnector("", WithEngine(newFakeEngine()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriverOpenConnector(t *testing.T) {
	d := &Driver{}
	dc, err := d.OpenConnector("monetdbe:///db?maxrows=3")
	require.NoError(t, err)
	c := dc.(*Connector)
	assert.Same(t, d, c.Driver().(*Driver))
	assert.Equal(t, int64(3), c.MaxRows)

	_, err = d.OpenConnector(":memory:?nope=1")
	assert.Error(t, err)

	var _ driver.DriverContext = d
}
