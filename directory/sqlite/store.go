// Package sqlite implements the participant directory on SQLite via
// Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/lounge/directory"
)

// compile-time interface check
var _ directory.Directory = (*Store)(nil)

// Store implements directory.Directory using SQLite via Grove ORM.
//
// Modify's per-record atomicity is provided by per-id locks held across
// the read-modify-write; the database itself only sees whole-row updates.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a new SQLite directory backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:    db,
		sdb:   sqlitedriver.Unwrap(db),
		locks: make(map[int64]*sync.Mutex),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("lounge/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("lounge/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the participant with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*directory.Participant, error) {
	m := new(participantModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, directory.ErrNotFound
		}
		return nil, err
	}
	return fromParticipantModel(m), nil
}

// All returns a snapshot of every participant record.
func (s *Store) All(ctx context.Context) ([]*directory.Participant, error) {
	var models []participantModel
	if err := s.sdb.NewSelect(&models).
		OrderExpr("id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*directory.Participant, len(models))
	for i := range models {
		out[i] = fromParticipantModel(&models[i])
	}
	return out, nil
}

// Add inserts a new participant record.
func (s *Store) Add(ctx context.Context, p *directory.Participant) error {
	m := toParticipantModel(p)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("lounge/sqlite: insert participant: %w", err)
	}
	return nil
}

// Modify applies fn to the participant under the per-record lock and
// writes the full row back.
func (s *Store) Modify(ctx context.Context, id int64, fn func(*directory.Participant)) (*directory.Participant, error) {
	lock := s.recordLock(id)
	lock.Lock()
	defer lock.Unlock()

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fn(p)
	p.Touch()

	m := toParticipantModel(p)
	if _, err := s.sdb.NewUpdate(m).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("lounge/sqlite: update participant: %w", err)
	}
	return p, nil
}

// CountActive returns the number of currently joined participants.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var models []participantModel
	if err := s.sdb.NewSelect(&models).
		Where("left IS NULL").
		Scan(ctx); err != nil {
		return 0, err
	}
	return len(models), nil
}

// recordLock returns the mutex guarding one participant's row.
func (s *Store) recordLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
