// Package testdb manages a directory of throwaway SQLite catalogue databases
// used by tests: create from a dump, save to a dump, drop, list and clean up
// left-over temporary databases.
package testdb

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wgdzlh/datacube/catalog"
	"github.com/wgdzlh/datacube/log"
	"github.com/wgdzlh/datacube/utils"

	"go.uber.org/zap"
)

const (
	dbExt  = ".db"
	sqlExt = ".sql"
)

// TempPattern matches the names of temporary test databases: a name
// containing "test" and ending in an underscore and nine digits.
var TempPattern = regexp.MustCompile(`^.*test.*_\d{9}$`)

var (
	ErrDatabaseExists = errors.New("database already exists")
	ErrDatabaseAbsent = errors.New("database does not exist")
)

type Server struct {
	Dir string
}

func NewServer(dir string) *Server {
	return &Server{Dir: dir}
}

func (s *Server) path(name string) string {
	return filepath.Join(s.Dir, name+dbExt)
}

// RandomName returns prefix followed by an underscore and nine random digits.
func RandomName(prefix string) string {
	return fmt.Sprintf("%s_%09d", prefix, rand.Intn(1_000_000_000))
}

// Create makes database name. An empty dump gives an empty catalogue; a
// .sql dump is executed as a script; anything else is copied as a SQLite
// file.
func (s *Server) Create(ctx context.Context, name, dump string) (err error) {
	path := s.path(name)
	if utils.FileExists(path) {
		return fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	}
	if err = os.MkdirAll(s.Dir, os.ModePerm); err != nil {
		return
	}
	log.Debug("TestDB:create", zap.String("name", name), zap.String("dump", dump))
	defer func() {
		if err != nil {
			s.remove(path)
		}
	}()
	switch {
	case dump == "":
		var db *catalog.DB
		if db, err = catalog.OpenMigrated(path); err != nil {
			return
		}
		return db.Close()
	case strings.EqualFold(filepath.Ext(dump), sqlExt):
		var script []byte
		if script, err = os.ReadFile(dump); err != nil {
			return
		}
		var db *catalog.DB
		if db, err = catalog.Open(path); err != nil {
			return
		}
		defer db.Close()
		_, err = db.ExecContext(ctx, string(script))
		return
	default:
		return copyFile(dump, path)
	}
}

// Save writes database name to dump, as an SQL script when dump ends in
// .sql and as a compacted SQLite file otherwise.
func (s *Server) Save(ctx context.Context, name, dump string) (err error) {
	path := s.path(name)
	if !utils.FileExists(path) {
		return fmt.Errorf("%w: %s", ErrDatabaseAbsent, name)
	}
	db, err := catalog.Open(path)
	if err != nil {
		return
	}
	defer db.Close()
	log.Debug("TestDB:save", zap.String("name", name), zap.String("dump", dump))
	tmp := utils.GetTmpPath(dump)
	defer os.Remove(tmp)
	if strings.EqualFold(filepath.Ext(dump), sqlExt) {
		err = writeScript(ctx, db, tmp)
	} else {
		_, err = db.ExecContext(ctx, `VACUUM INTO ?`, tmp)
	}
	if err != nil {
		return
	}
	return os.Rename(tmp, dump)
}

// Drop deletes database name together with its journal files.
func (s *Server) Drop(name string) (err error) {
	path := s.path(name)
	if !utils.FileExists(path) {
		return fmt.Errorf("%w: %s", ErrDatabaseAbsent, name)
	}
	log.Debug("TestDB:drop", zap.String("name", name))
	return s.remove(path)
}

func (s *Server) remove(path string) (err error) {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if e := os.Remove(path + suffix); e != nil && !errors.Is(e, os.ErrNotExist) && err == nil {
			err = e
		}
	}
	return
}

// List returns the database names, sorted.
func (s *Server) List() (names []string, err error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == dbExt {
			names = append(names, strings.TrimSuffix(e.Name(), dbExt))
		}
	}
	sort.Strings(names)
	return
}

// Cleanup drops every temporary test database and reports what it did to w.
// Running it may break tests that are still using their databases.
func (s *Server) Cleanup(w io.Writer) (dropped []string, err error) {
	names, err := s.List()
	if err != nil {
		return
	}
	fmt.Fprintln(w, "Dropping temporary test databases:")
	for _, name := range names {
		if !TempPattern.MatchString(name) {
			continue
		}
		fmt.Fprintf(w, "    %s\n", name)
		if err = s.Drop(name); err != nil {
			return
		}
		dropped = append(dropped, name)
	}
	if len(dropped) == 0 {
		fmt.Fprintln(w, "    nothing to do.")
	}
	return
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()
	tmp := utils.GetTmpPath(dst)
	out, err := os.Create(tmp)
	if err != nil {
		return
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return
	}
	if err = out.Close(); err != nil {
		os.Remove(tmp)
		return
	}
	return os.Rename(tmp, dst)
}

type schemaItem struct {
	kind, name, sql string
}

// writeScript dumps schema and rows as SQL statements. Queries are not
// nested since the catalogue holds a single connection.
func writeScript(ctx context.Context, db *catalog.DB, path string) (err error) {
	rows, err := db.QueryContext(ctx,
		`SELECT type, name, sql FROM sqlite_master
		 WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%'
		 ORDER BY CASE type WHEN 'table' THEN 0 ELSE 1 END, name`)
	if err != nil {
		return
	}
	var items []schemaItem
	for rows.Next() {
		var it schemaItem
		if err = rows.Scan(&it.kind, &it.name, &it.sql); err != nil {
			rows.Close()
			return
		}
		items = append(items, it)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "PRAGMA foreign_keys=OFF;")
	fmt.Fprintln(w, "BEGIN TRANSACTION;")
	for _, it := range items {
		fmt.Fprintf(w, "%s;\n", it.sql)
		if it.kind != "table" {
			continue
		}
		if err = dumpTable(ctx, db, w, it.name); err != nil {
			return
		}
	}
	fmt.Fprintln(w, "COMMIT;")
	if err = w.Flush(); err != nil {
		return
	}
	return f.Close()
}

func dumpTable(ctx context.Context, db *catalog.DB, w io.Writer, table string) (err error) {
	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	lits := make([]string, len(cols))
	for rows.Next() {
		if err = rows.Scan(ptrs...); err != nil {
			return
		}
		for i, v := range vals {
			lits[i] = literal(v)
		}
		fmt.Fprintf(w, "INSERT INTO \"%s\" VALUES(%s);\n", table, strings.Join(lits, ","))
	}
	return rows.Err()
}

// SQL literal of a scanned value
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []byte:
		return "X'" + hex.EncodeToString(x) + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}
