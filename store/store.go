// Package store persists row stores and prediction ledgers in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"

	"github.com/tournox/tournox/data"
	"github.com/tournox/tournox/pkg/errors"
	"github.com/tournox/tournox/predict"
)

const schema = `
CREATE TABLE IF NOT EXISTS rows (
  seq    INTEGER PRIMARY KEY,
  id     TEXT NOT NULL UNIQUE,
  era    INTEGER NOT NULL,
  region INTEGER NOT NULL,
  x      BLOB NOT NULL,
  y      REAL
);
CREATE TABLE IF NOT EXISTS rows_meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS ledger_rows (
  seq INTEGER PRIMARY KEY,
  id  TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS ledger_models (
  seq  INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS predictions (
  seq   INTEGER PRIMARY KEY,
  id    TEXT NOT NULL,
  model TEXT NOT NULL,
  y     REAL NOT NULL,
  UNIQUE (id, model)
);
`

const (
	metaNCols = "ncols"
	metaCodec = "x_codec"

	codecRaw  = "raw"
	codecZstd = "zstd"
)

// Store persists tournament data in a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store, creating the schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewValueError("store.Open", "storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// encodeRow packs one feature row as little-endian float64s,
// optionally zstd-compressed.
func encodeRow(enc *zstd.Encoder, row []float64) []byte {
	buf := make([]byte, 8*len(row))
	for i, v := range row {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	if enc != nil {
		return enc.EncodeAll(buf, nil)
	}
	return buf
}

func decodeRow(dec *zstd.Decoder, blob []byte, ncols int) ([]float64, error) {
	if dec != nil {
		raw, err := dec.DecodeAll(blob, nil)
		if err != nil {
			return nil, errors.Wrap(err, "decompress feature row")
		}
		blob = raw
	}
	if len(blob) != 8*ncols {
		return nil, errors.NewShapeError("store.LoadData", 8*ncols, len(blob), 1)
	}
	row := make([]float64, ncols)
	for i := range row {
		row[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return row, nil
}

// SaveData replaces the stored rows with d. When compress is set the
// feature blobs are zstd-compressed.
func (s *Store) SaveData(ctx context.Context, d *data.Data, compress bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(nil)
		if err != nil {
			return errors.Wrap(err, "create zstd encoder")
		}
		defer enc.Close()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rows`); err != nil {
		return errors.Wrap(err, "clear rows")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rows_meta`); err != nil {
		return errors.Wrap(err, "clear rows meta")
	}

	_, ncols := d.XShape()
	codec := codecRaw
	if compress {
		codec = codecZstd
	}
	for key, value := range map[string]string{
		metaNCols: strconv.Itoa(ncols),
		metaCodec: codec,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rows_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return errors.Wrap(err, "write rows meta")
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO rows (seq, id, era, region, x, y) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare row insert")
	}
	defer insert.Close()

	ids := d.IDs()
	eras := d.Eras()
	regions := d.Regions()
	x := d.X()
	y := d.Y()
	row := make([]float64, ncols)
	for i := 0; i < d.Len(); i++ {
		for k := 0; k < ncols; k++ {
			row[k] = x.At(i, k)
		}
		var yv interface{}
		if !math.IsNaN(y[i]) {
			yv = y[i]
		}
		if _, err := insert.ExecContext(ctx,
			i, ids[i], int(eras[i]), int(regions[i]), encodeRow(enc, row), yv); err != nil {
			return errors.Wrapf(err, "insert row %s", ids[i])
		}
	}
	return errors.Wrap(tx.Commit(), "commit save")
}

// LoadData reads the stored rows back, in the order they were saved.
func (s *Store) LoadData(ctx context.Context) (*data.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ncols, codec, err := s.rowsMeta(ctx)
	if err != nil {
		return nil, err
	}
	var dec *zstd.Decoder
	if codec == codecZstd {
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, "create zstd decoder")
		}
		defer dec.Close()
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, era, region, x, y FROM rows ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "query rows")
	}
	defer rows.Close()

	var (
		ids     []string
		eras    []data.Era
		regions []data.Region
		xdata   []float64
		ys      []float64
	)
	for rows.Next() {
		var (
			id          string
			era, region int
			blob        []byte
			y           sql.NullFloat64
		)
		if err := rows.Scan(&id, &era, &region, &blob, &y); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		xrow, err := decodeRow(dec, blob, ncols)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		eras = append(eras, data.Era(era))
		regions = append(regions, data.Region(region))
		xdata = append(xdata, xrow...)
		if y.Valid {
			ys = append(ys, y.Float64)
		} else {
			ys = append(ys, math.NaN())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	if len(ids) == 0 {
		return data.New(nil, nil, nil, nil, nil)
	}
	return data.New(ids, eras, regions, mat.NewDense(len(ids), ncols, xdata), ys)
}

func (s *Store) rowsMeta(ctx context.Context) (ncols int, codec string, err error) {
	codec = codecRaw
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, value FROM rows_meta`)
	if err != nil {
		return 0, "", errors.Wrap(err, "query rows meta")
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return 0, "", errors.Wrap(err, "scan rows meta")
		}
		switch key {
		case metaNCols:
			ncols, err = strconv.Atoi(value)
			if err != nil {
				return 0, "", errors.Wrap(err, "parse ncols")
			}
		case metaCodec:
			codec = value
		}
	}
	return ncols, codec, errors.Wrap(rows.Err(), "iterate rows meta")
}

// SavePrediction writes a ledger. In append mode existing model
// columns are kept and saving a column whose name is already present
// fails before anything is written; otherwise the stored ledger is
// replaced. Row and column order are stored explicitly so a load
// reproduces the ledger exactly; missing cells are not stored.
func (s *Store) SavePrediction(ctx context.Context, p *predict.Prediction, appendMode bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.Names()) == 0 {
		return errors.NewEmptyOperationError("store.SavePrediction")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save")
	}
	defer func() { _ = tx.Rollback() }()

	if appendMode {
		for _, name := range p.Names() {
			var count int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM ledger_models WHERE name = ?`, name).Scan(&count); err != nil {
				return errors.Wrap(err, "check model column")
			}
			if count > 0 {
				return errors.Wrapf(errors.ErrColumnExists, "store.SavePrediction: %s", name)
			}
		}
	} else {
		for _, table := range []string{"predictions", "ledger_models", "ledger_rows"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return errors.Wrapf(err, "clear %s", table)
			}
		}
	}

	// 新しい id は末尾に追加される
	for _, id := range p.IDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO ledger_rows (id) VALUES (?)`, id); err != nil {
			return errors.Wrapf(err, "insert ledger row %s", id)
		}
	}
	for _, name := range p.Names() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_models (name) VALUES (?)`, name); err != nil {
			return errors.Wrapf(err, "insert ledger model %s", name)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO predictions (id, model, y) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare prediction insert")
	}
	defer insert.Close()

	ids := p.IDs()
	for _, name := range p.Names() {
		col, err := p.Column(name)
		if err != nil {
			return err
		}
		for i, v := range col {
			if math.IsNaN(v) {
				continue
			}
			if _, err := insert.ExecContext(ctx, ids[i], name, v); err != nil {
				return errors.Wrapf(err, "insert prediction %s/%s", name, ids[i])
			}
		}
	}
	return errors.Wrap(tx.Commit(), "commit save")
}

// LoadPrediction reads the stored ledger back in the stored row and
// column order.
func (s *Store) LoadPrediction(ctx context.Context) (*predict.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, index, err := s.ledgerRows(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.ledgerModels(ctx)
	if err != nil {
		return nil, err
	}

	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		col := make([]float64, len(ids))
		for i := range col {
			col[i] = math.NaN()
		}
		cols[name] = col
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, model, y FROM predictions`)
	if err != nil {
		return nil, errors.Wrap(err, "query predictions")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, name string
			y        float64
		)
		if err := rows.Scan(&id, &name, &y); err != nil {
			return nil, errors.Wrap(err, "scan prediction")
		}
		i, ok := index[id]
		if !ok {
			return nil, errors.NewValueError("store.LoadPrediction", "prediction references unknown id: "+id)
		}
		col, ok := cols[name]
		if !ok {
			return nil, errors.NewValueError("store.LoadPrediction", "prediction references unknown model: "+name)
		}
		col[i] = y
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate predictions")
	}

	p := predict.NewPrediction()
	for _, name := range names {
		p, err = p.MergeArrays(ids, cols[name], name)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Store) ledgerRows(ctx context.Context) (ids []string, index map[string]int, err error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM ledger_rows ORDER BY seq`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query ledger rows")
	}
	defer rows.Close()
	index = make(map[string]int)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, nil, errors.Wrap(err, "scan ledger row")
		}
		index[id] = len(ids)
		ids = append(ids, id)
	}
	return ids, index, errors.Wrap(rows.Err(), "iterate ledger rows")
}

func (s *Store) ledgerModels(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM ledger_models ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "query ledger models")
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan ledger model")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "iterate ledger models")
}
