package sparse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableShape  = "shape"
	tableMatrix = "m"
	tableInts   = "ints"
)

// DiskStore is a sqlite database of named sparse matrices and integer vectors.
type DiskStore struct {
	Path string

	db *sql.DB
}

// OpenDiskStore opens the store at dbPath, creating its tables if needed.
func OpenDiskStore(ctx context.Context, dbPath string) (*DiskStore, error) {
	s := &DiskStore{Path: dbPath}
	var err error
	s.db, err = sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// sqlite does not support concurrent writers on one file.
	s.db.SetMaxOpenConns(1)

	if err := prepareDB(ctx, s.db); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *DiskStore) Close() error {
	return s.db.Close()
}

// Put stores m under name, replacing any previous matrix of the same name.
func (s *DiskStore) Put(ctx context.Context, name string, m *CSR) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err := deleteMatrix(ctx, tx, name); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr := fmt.Sprintf(`INSERT INTO %s (name, rows, cols) VALUES (?, ?, ?)`, tableShape)
	if _, err := tx.ExecContext(ctx, sqlStr, name, m.rows, m.cols); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %s", sqlStr, name))
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (name, i, j, re, im) VALUES (?, ?, ?, ?, ?)`, tableMatrix)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	for t := range m.Triplets() {
		if _, err := stmt.ExecContext(ctx, name, t.Row, t.Col, real(t.V), imag(t.V)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %#v", name, t))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Get loads the matrix stored under name.
func (s *DiskStore) Get(ctx context.Context, name string) (*CSR, error) {
	var rows, cols int
	sqlStr := fmt.Sprintf(`SELECT rows, cols FROM %s WHERE name=?`, tableShape)
	err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&rows, &cols)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Errorf("matrix %q not found", name)
	case err != nil:
		return nil, errors.Wrap(err, name)
	}

	sqlStr = fmt.Sprintf(`SELECT i, j, re, im FROM %s WHERE name=? ORDER BY i, j`, tableMatrix)
	dbRows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer dbRows.Close()

	ts := make([]Triplet, 0)
	for dbRows.Next() {
		var i, j int
		var re, im float64
		if err := dbRows.Scan(&i, &j, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		ts = append(ts, Triplet{V: complex(re, im), Row: i, Col: j})
	}
	if err := dbRows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}

	return FromTriplets(rows, cols, ts), nil
}

// Delete removes the matrix stored under name.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if err := deleteMatrix(ctx, s.db, name); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Has reports whether a matrix is stored under name.
func (s *DiskStore) Has(ctx context.Context, name string) (bool, error) {
	sqlStr := fmt.Sprintf(`SELECT count(1) FROM %s WHERE name=?`, tableShape)
	var n int
	if err := s.db.QueryRowContext(ctx, sqlStr, name).Scan(&n); err != nil {
		return false, errors.Wrap(err, "")
	}
	return n > 0, nil
}

// Names returns the sorted names of the matrices whose name begins with prefix.
func (s *DiskStore) Names(ctx context.Context, prefix string) ([]string, error) {
	sqlStr := fmt.Sprintf(`SELECT name FROM %s WHERE name >= ? ORDER BY name`, tableShape)
	args := []any{prefix}
	if end, ok := prefixEnd(prefix); ok {
		sqlStr = fmt.Sprintf(`SELECT name FROM %s WHERE name >= ? AND name < ? ORDER BY name`, tableShape)
		args = append(args, end)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return names, nil
}

// PutInts stores an integer vector under name.
func (s *DiskStore) PutInts(ctx context.Context, name string, v []int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableInts)
	if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`INSERT INTO %s (name, i, v) VALUES (?, ?, ?)`, tableInts)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer stmt.Close()
	for i, x := range v {
		if _, err := stmt.ExecContext(ctx, name, i, x); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %d", name, i))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// GetInts loads the integer vector stored under name.
func (s *DiskStore) GetInts(ctx context.Context, name string) ([]int, error) {
	sqlStr := fmt.Sprintf(`SELECT i, v FROM %s WHERE name=? ORDER BY i`, tableInts)
	rows, err := s.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	v := make([]int, 0)
	for rows.Next() {
		var i, x int
		if err := rows.Scan(&i, &x); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if i != len(v) {
			return nil, errors.Errorf("%s %d %d", name, i, len(v))
		}
		v = append(v, x)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return v, nil
}

// prefixEnd returns the exclusive upper bound, in byte order, of the strings beginning with prefix.
// It returns false if there is none.
func prefixEnd(prefix string) (string, bool) {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1]), true
		}
	}
	return "", false
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteMatrix(ctx context.Context, db execer, name string) error {
	for _, table := range []string{tableShape, tableMatrix} {
		sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE name=?`, table)
		if _, err := db.ExecContext(ctx, sqlStr, name); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s %s", sqlStr, name))
		}
	}
	return nil
}

func prepareDB(ctx context.Context, db *sql.DB) error {
	sqlStrs := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, rows INTEGER, cols INTEGER, PRIMARY KEY (name)) STRICT`, tableShape),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, i INTEGER, j INTEGER, re REAL, im REAL, PRIMARY KEY (name, i, j)) STRICT`, tableMatrix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, i INTEGER, v INTEGER, PRIMARY KEY (name, i)) STRICT`, tableInts),
	}
	for _, sqlStr := range sqlStrs {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}
