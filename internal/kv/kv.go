// Package kv provides the string-valued key/value slots the document is
// persisted in.
package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Store is a durable string slot keyed by name.
type Store interface {
	// Read returns the value stored under key. ok is false when the key has
	// never been written.
	Read(key string) (value string, ok bool, err error)
	// Write replaces the value stored under key.
	Write(key, value string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Drivers lists every accepted driver name.
var Drivers = []string{DriverFile, DriverSQLite, DriverMemory, DriverNone}

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "devspace.db"

// Options selects and configures a Store.
type Options struct {
	Driver string
	// Dir is the data directory for the file and sqlite drivers.
	Dir string
}

// Open builds the Store named by opts.Driver, creating Dir when needed.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverNone:
		return Unavailable{}, nil
	case DriverFile, DriverSQLite:
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", opts.Driver)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: mkdir: %w", err)
	}
	if opts.Driver == DriverFile {
		return NewFile(opts.Dir)
	}
	return OpenSQLite(filepath.Join(opts.Dir, DatabaseFile))
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}
