package relation

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/hupe1980/spatialknn/model"
)

const schema = `CREATE TABLE IF NOT EXISTS objects (
	id  INTEGER PRIMARY KEY,
	vec BLOB NOT NULL
)`

// SQLite is a relation persisted in a SQLite table.
//
// Vectors are stored as little-endian float64 blobs. Object ids are stored as
// their int64 bit pattern.
type SQLite struct {
	db  *sql.DB
	dim int
}

var _ Mutable = (*SQLite)(nil)

// OpenSQLite opens (and if needed creates) a relation in the database at dsn.
// Pass ":memory:" for a transient database. dim 0 infers the dimension from the
// stored or first inserted vector.
func OpenSQLite(ctx context.Context, dsn string, dim int) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// An in-memory database lives per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLite{db: db, dim: dim}
	if dim == 0 {
		var blob []byte
		err := db.QueryRowContext(ctx, `SELECT vec FROM objects LIMIT 1`).Scan(&blob)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			_ = db.Close()
			return nil, err
		default:
			s.dim = len(blob) / 8
		}
	}
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(id model.ObjectID) (model.Vector, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT vec FROM objects WHERE id = ?`, int64(id)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return decodeVector(blob)
}

// Scan calls fn for every object in ascending id order.
func (s *SQLite) Scan(fn func(id model.ObjectID, v model.Vector) error) error {
	rows, err := s.db.Query(`SELECT id, vec FROM objects ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	// Collect first: fn may call back into the relation, and the single
	// connection is held by rows until it is closed.
	var (
		ids  []model.ObjectID
		vecs []model.Vector
	)
	for rows.Next() {
		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		v, err := decodeVector(blob)
		if err != nil {
			return err
		}
		ids = append(ids, model.ObjectID(id))
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for i, id := range ids {
		if err := fn(id, vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLite) Dimension() int { return s.dim }

func (s *SQLite) Insert(id model.ObjectID, v model.Vector) error {
	if err := checkDim(s.dim, v); err != nil {
		return err
	}
	res, err := s.db.Exec(`INSERT INTO objects (id, vec) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		int64(id), encodeVector(v))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %d", ErrDuplicate, id)
	}
	if s.dim == 0 {
		s.dim = len(v)
	}
	return nil
}

func (s *SQLite) Delete(id model.ObjectID) (model.Vector, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`DELETE FROM objects WHERE id = ?`, int64(id)); err != nil {
		return nil, err
	}
	return v, nil
}

func encodeVector(v model.Vector) []byte {
	b := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(x))
	}
	return b
}

func decodeVector(b []byte) (model.Vector, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("relation: invalid vector blob length %d (not multiple of 8)", len(b))
	}
	v := make(model.Vector, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}
