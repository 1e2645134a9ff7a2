package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	// ErrSnapshotNotFound is returned by Load for an unknown ID.
	ErrSnapshotNotFound = errors.New("telemetry: snapshot not found")
	// ErrStoreClosed is returned when a store is used before Init or after Close.
	ErrStoreClosed = errors.New("telemetry: store is not initialized")
)

// Store persists world snapshots.
type Store interface {
	Init(ctx context.Context) error
	// Save stores s, assigning an ID when it has none, and returns the ID.
	Save(ctx context.Context, s *WorldSnapshot) (string, error)
	Load(ctx context.Context, id string) (*WorldSnapshot, error)
	// List returns stored snapshots, newest first.
	List(ctx context.Context) ([]SnapshotInfo, error)
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func assignID(s *WorldSnapshot) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
}

// MemoryStore keeps encoded snapshots in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	infos map[string]SnapshotInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	m.infos = make(map[string]SnapshotInfo)
	return nil
}

func (m *MemoryStore) Save(_ context.Context, s *WorldSnapshot) (string, error) {
	assignID(s)
	data, err := MarshalSnapshot(s)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		return "", ErrStoreClosed
	}
	m.items[s.ID] = data
	m.infos[s.ID] = s.Info()
	return s.ID, nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*WorldSnapshot, error) {
	m.mu.RLock()
	data, ok := m.items[id]
	closed := m.items == nil
	m.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return UnmarshalSnapshot(data)
}

func (m *MemoryStore) List(_ context.Context) ([]SnapshotInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.items == nil {
		return nil, ErrStoreClosed
	}
	out := make([]SnapshotInfo, 0, len(m.infos))
	for _, info := range m.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.items, m.infos = nil, nil
	m.mu.Unlock()
	return nil
}

// SQLiteStore keeps snapshots in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open snapshot db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			sim_time REAL NOT NULL,
			agents INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return fmt.Errorf("create snapshot table: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *WorldSnapshot) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	assignID(snap)
	payload, err := MarshalSnapshot(snap)
	if err != nil {
		return "", err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, version, created_at, sim_time, agents, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			created_at = excluded.created_at,
			sim_time = excluded.sim_time,
			agents = excluded.agents,
			payload = excluded.payload
	`, snap.ID, snap.Version, snap.Timestamp.UnixNano(), snap.SimTime, len(snap.Agents), payload)
	if err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return snap.ID, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*WorldSnapshot, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	snap, err := UnmarshalSnapshot(payload)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, created_at, sim_time, agents FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created int64
		if err := rows.Scan(&info.ID, &created, &info.SimTime, &info.Agents); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		info.Timestamp = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	return s.db, nil
}
