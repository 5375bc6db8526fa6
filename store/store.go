// Package store persists encounters and the diagnosis vocabulary on any of the
// supported backends. A Store owns exactly one live connection; it does no
// internal locking, so callers sharing one across goroutines must serialize
// writes themselves.
package store

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/hmis/db"
	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// Store is the encounter and vocabulary store.
type Store struct {
	db      *sql.DB
	cfg     db.ConnectionConfig
	backend db.Backend
	logger  *zap.SugaredLogger
}

// New returns an unconnected store. A nil logger disables logging.
func New(log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{logger: log}
}

// Open returns a store connected to cfg with its schema ensured.
func Open(cfg db.ConnectionConfig, log *zap.SugaredLogger) (*Store, error) {
	s := New(log)
	if err := s.Connect(cfg); err != nil {
		return nil, err
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already open connection, e.g. a test double.
func NewWithDB(database *sql.DB, backend db.Backend, log *zap.SugaredLogger) *Store {
	s := New(log)
	s.db = database
	s.backend = backend
	return s
}

// Connect opens cfg's backend and makes it the store's connection, closing any
// previous one. Nothing is retried; the previous connection is kept if the
// new one cannot be opened.
func (s *Store) Connect(cfg db.ConnectionConfig) error {
	conn, err := db.Open(cfg, s.logger)
	if err != nil {
		return err
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warnw("Failed to close previous connection", logger.FieldError, err)
		}
	}

	s.db = conn
	s.cfg = cfg
	s.backend = cfg.Backend()
	return nil
}

// CreateSchema ensures the encounter and vocabulary tables exist.
// It never drops or rewrites existing data.
func (s *Store) CreateSchema() error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return db.Migrate(conn, s.backend, s.logger)
}

// Close releases the connection. Closing an unconnected store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Backend reports the connected backend.
func (s *Store) Backend() db.Backend {
	return s.backend
}

// Config returns the configuration the store was connected with.
func (s *Store) Config() db.ConnectionConfig {
	return s.cfg
}

func (s *Store) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, errors.Mark(db.ErrDatabaseClosed, errors.ErrConnection)
	}
	return s.db, nil
}

func (s *Store) rebind(query string) string {
	return db.Rebind(s.backend, query)
}
