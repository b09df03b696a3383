// Package catalog is the tile catalogue: acquisitions and the dataset tiles
// produced from them, stored in SQLite.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/wgdzlh/datacube/log"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	TileClassSingle        = 1
	TileClassOverlapSource = 2
	TileClassMosaic        = 3
)

const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

var (
	ErrTileExists        = errors.New("attempt to recreate an existing tile")
	ErrAcquisitionAbsent = errors.New("acquisition not found")
)

type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the catalogue at path. Migrations are not
// applied; call MigrateUp.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	log.Debug("Catalog:opened", zap.String("path", path))
	return &DB{DB: db, path: path}, nil
}

// OpenMigrated opens the catalogue and brings its schema up to date.
func OpenMigrated(path string) (*DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err = db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Path() string {
	return db.path
}
