package monetdbe

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

// DriverName is the name the driver registers with database/sql.
const DriverName = "monetdbe"

func init() {
	sql.Register(DriverName, &Driver{})
}

// Driver implements the database/sql/driver.Driver interface
type Driver struct{}

// Open opens a new connection to the database
// The name is a database location, e.g.:
//   - ":memory:" or "" for an in-memory database
//   - "/var/lib/monetdbe/farm" for a persistent database directory
//   - "monetdbe:///var/lib/db?memorylimit=512&nr_threads=4"
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector returns a new Connector for the given location
// This implements driver.DriverContext for connection pooling efficiency
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	connector, err := NewConnector(name)
	if err != nil {
		return nil, err
	}
	connector.driver = d
	return connector, nil
}

// Ensure Driver implements the required interfaces
var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)
