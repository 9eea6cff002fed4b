package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// DefaultDSN is the SQLite database used when none is configured.
const DefaultDSN = "file:footprint.db?_pragma=foreign_keys(1)"

// insertBatch caps rows per INSERT to stay under SQLite's variable limit.
const insertBatch = 200

// SQLStore keeps stores and malls in SQLite and implements Provider.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the SQLite database at dsn and ensures the tables exist.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, logger: logger}
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateTables creates the stores and malls tables if they do not exist.
func (s *SQLStore) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS malls (
			mall_id       TEXT PRIMARY KEY,
			mall_name     TEXT NOT NULL,
			city          TEXT NOT NULL DEFAULT '',
			province      TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL DEFAULT '',
			dji_opened    INTEGER NOT NULL DEFAULT 0,
			insta_opened  INTEGER NOT NULL DEFAULT 0,
			dji_target    INTEGER NOT NULL DEFAULT 0,
			dji_exclusive INTEGER NOT NULL DEFAULT 0,
			latitude      REAL,
			longitude     REAL
		);

		CREATE TABLE IF NOT EXISTS stores (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			brand        TEXT NOT NULL,
			province     TEXT NOT NULL DEFAULT '',
			city         TEXT NOT NULL DEFAULT '',
			address      TEXT NOT NULL DEFAULT '',
			store_type   TEXT NOT NULL DEFAULT '',
			mall_id      TEXT NOT NULL DEFAULT '',
			latitude     REAL,
			longitude    REAL,
			opened_at    TEXT,
			service_tags TEXT NOT NULL DEFAULT '[]',
			seq          INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_stores_province_city ON stores (province, city);
		CREATE INDEX IF NOT EXISTS idx_stores_mall ON stores (mall_id);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Count returns the number of stores and malls currently stored.
func (s *SQLStore) Count(ctx context.Context) (stores, malls int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stores`).Scan(&stores); err != nil {
		return 0, 0, fmt.Errorf("counting stores: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM malls`).Scan(&malls); err != nil {
		return 0, 0, fmt.Errorf("counting malls: %w", err)
	}
	return stores, malls, nil
}

// Replace swaps the stored collections for d in one transaction.
func (s *SQLStore) Replace(ctx context.Context, d *Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stores; DELETE FROM malls;`); err != nil {
		return fmt.Errorf("clearing tables: %w", err)
	}
	if err := insertMalls(ctx, tx, d.Malls()); err != nil {
		return err
	}
	if err := insertStores(ctx, tx, d.Stores()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dataset: %w", err)
	}
	s.logger.Info("dataset stored",
		zap.Int("stores", len(d.Stores())),
		zap.Int("malls", len(d.Malls())))
	return nil
}

func insertMalls(ctx context.Context, tx *sql.Tx, malls []types.Mall) error {
	const cols = 11
	for start := 0; start < len(malls); start += insertBatch {
		chunk := malls[start:min(start+insertBatch, len(malls))]
		args := make([]any, 0, len(chunk)*cols)
		for _, m := range chunk {
			args = append(args,
				m.MallID, m.MallName, m.City, m.Province, string(m.Status),
				m.DJIOpened, m.InstaOpened, m.DJITarget, m.DJIExclusive,
				nullFloat(m.Latitude), nullFloat(m.Longitude),
			)
		}
		query := `INSERT INTO malls (
			mall_id, mall_name, city, province, status,
			dji_opened, insta_opened, dji_target, dji_exclusive, latitude, longitude
		) VALUES ` + placeholders(len(chunk), cols) + ` ON CONFLICT (mall_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting malls: %w", err)
		}
	}
	return nil
}

func insertStores(ctx context.Context, tx *sql.Tx, stores []types.Store) error {
	const cols = 13
	for start := 0; start < len(stores); start += insertBatch {
		chunk := stores[start:min(start+insertBatch, len(stores))]
		args := make([]any, 0, len(chunk)*cols)
		for i, st := range chunk {
			tags, err := json.Marshal(st.ServiceTags)
			if err != nil {
				return fmt.Errorf("encoding service tags for %s: %w", st.ID, err)
			}
			if st.ServiceTags == nil {
				tags = []byte("[]")
			}
			var opened sql.NullString
			if st.OpenedAt != nil {
				opened = sql.NullString{String: st.OpenedAt.UTC().Format(time.RFC3339), Valid: true}
			}
			args = append(args,
				st.ID, st.Name, string(st.Brand), st.Province, st.City, st.Address,
				st.StoreType, st.MallID, nullFloat(st.Latitude), nullFloat(st.Longitude),
				opened, string(tags), start+i,
			)
		}
		query := `INSERT INTO stores (
			id, name, brand, province, city, address,
			store_type, mall_id, latitude, longitude, opened_at, service_tags, seq
		) VALUES ` + placeholders(len(chunk), cols) + ` ON CONFLICT (id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting stores: %w", err)
		}
	}
	return nil
}

// Load reads every store and mall, stores in insertion order.
func (s *SQLStore) Load(ctx context.Context) (*Dataset, error) {
	malls, err := s.loadMalls(ctx)
	if err != nil {
		return nil, err
	}
	stores, err := s.loadStores(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("dataset loaded", zap.Int("stores", len(stores)), zap.Int("malls", len(malls)))
	return New(stores, malls), nil
}

func (s *SQLStore) loadMalls(ctx context.Context) ([]types.Mall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mall_id, mall_name, city, province, status,
			dji_opened, insta_opened, dji_target, dji_exclusive, latitude, longitude
		FROM malls
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying malls: %w", err)
	}
	defer rows.Close()

	var out []types.Mall
	for rows.Next() {
		var m types.Mall
		var status string
		var lat, lng sql.NullFloat64
		err := rows.Scan(
			&m.MallID, &m.MallName, &m.City, &m.Province, &status,
			&m.DJIOpened, &m.InstaOpened, &m.DJITarget, &m.DJIExclusive, &lat, &lng,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning mall: %w", err)
		}
		m.Status = types.MallStatus(status)
		m.Latitude = floatPtr(lat)
		m.Longitude = floatPtr(lng)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading malls: %w", err)
	}
	return out, nil
}

func (s *SQLStore) loadStores(ctx context.Context) ([]types.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brand, province, city, address,
			store_type, mall_id, latitude, longitude, opened_at, service_tags
		FROM stores
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying stores: %w", err)
	}
	defer rows.Close()

	var out []types.Store
	for rows.Next() {
		var st types.Store
		var brand, tags string
		var lat, lng sql.NullFloat64
		var opened sql.NullString
		err := rows.Scan(
			&st.ID, &st.Name, &brand, &st.Province, &st.City, &st.Address,
			&st.StoreType, &st.MallID, &lat, &lng, &opened, &tags,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning store: %w", err)
		}
		st.Brand = types.Brand(brand)
		if !st.Brand.Valid() {
			s.logger.Warn("skipping store with unknown brand", zap.String("id", st.ID), zap.String("brand", brand))
			continue
		}
		st.Latitude = floatPtr(lat)
		st.Longitude = floatPtr(lng)
		if opened.Valid {
			if t, err := time.Parse(time.RFC3339, opened.String); err == nil {
				st.OpenedAt = &t
			}
		}
		if err := json.Unmarshal([]byte(tags), &st.ServiceTags); err != nil {
			return nil, fmt.Errorf("decoding service tags for %s: %w", st.ID, err)
		}
		if len(st.ServiceTags) == 0 {
			st.ServiceTags = nil
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading stores: %w", err)
	}
	return out, nil
}

// placeholders renders "(?, ?), (?, ?)" for rows x cols.
func placeholders(rows, cols int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	parts := make([]string, rows)
	for i := range parts {
		parts[i] = row
	}
	return strings.Join(parts, ", ")
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
