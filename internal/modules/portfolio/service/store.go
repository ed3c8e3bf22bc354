package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
)

// State is the persisted ledger document: every pool's cash and open
// positions. Human-inspectable JSON, read-modify-write.
type State map[models.PoolKind]*models.Pool

// Pool returns the pool for kind, initializing a missing one so a fresh or
// partially written state file never crashes the tick.
func (s State) Pool(kind models.PoolKind) *models.Pool {
	p, ok := s[kind]
	if !ok || p == nil {
		p = models.NewPool(0)
		s[kind] = p
	}
	if p.Positions == nil {
		p.Positions = make(map[string]*models.Position)
	}
	return p
}

// Store persists the whole ledger document. Every BUY/SELL is followed by
// a durable Save before the next instrument is touched.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	// Snapshot writes an extra copy for manual review (circuit breaker).
	Snapshot(ctx context.Context, st State, suffix string) error
}

// FileStore keeps the ledger in one JSON file, written atomically via a
// temp file and rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return nil, errors.Wrap(err, "read state")
	}
	var st State
	if err := sonic.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, "decode state")
	}
	if st == nil {
		st = State{}
	}
	return st, nil
}

func (f *FileStore) Save(_ context.Context, st State) error {
	data, err := sonic.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "rename state")
	}
	return nil
}

func (f *FileStore) Snapshot(_ context.Context, st State, suffix string) error {
	data, err := sonic.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	dir := filepath.Dir(f.path)
	name := filepath.Base(f.path) + "." + suffix
	return errors.Wrap(os.WriteFile(filepath.Join(dir, name), data, 0o644), "write snapshot")
}
