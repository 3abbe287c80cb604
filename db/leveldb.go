package db

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = leveldb.ErrNotFound

// ErrReadOnly is returned by writes issued inside View
var ErrReadOnly = errors.New("write attempted in a read-only view")

// Reader is the read side shared by the database, snapshots and transactions
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewIterator(prefix []byte) iterator.Iterator
}

// KV is a Reader that can also write
type KV interface {
	Reader
	Put(key, value []byte) error
}

// Store runs functions against a consistent view of the data.
// Update applies every write made by fn atomically or none of them.
type Store interface {
	Update(fn func(kv KV) error) error
	View(fn func(kv KV) error) error
}

// LevelDB wraps the actual LevelDB connection
type LevelDB struct {
	conn *leveldb.DB
	mux  sync.Mutex
}

// NewLevelDB opens (or creates) a LevelDB instance at the given path
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// NewMemLevelDB opens a LevelDB instance backed by memory, used by tests
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// Close safely closes the LevelDB connection
func (l *LevelDB) Close() error {
	return l.conn.Close()
}

// Update runs fn inside a LevelDB transaction. Updates are serialized; the
// transaction is committed only when fn returns nil and discarded otherwise.
func (l *LevelDB) Update(fn func(kv KV) error) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	tr, err := l.conn.OpenTransaction()
	if err != nil {
		return err
	}
	if err := fn(&txn{tr: tr}); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		tr.Discard()
		return err
	}
	return nil
}

// View runs fn against a snapshot. Writes fail with ErrReadOnly.
func (l *LevelDB) View(fn func(kv KV) error) error {
	snap, err := l.conn.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()
	return fn(&snapshot{snap: snap})
}

type txn struct {
	tr *leveldb.Transaction
}

func (t *txn) Get(key []byte) ([]byte, error) {
	return t.tr.Get(key, nil)
}

func (t *txn) Has(key []byte) (bool, error) {
	return t.tr.Has(key, nil)
}

func (t *txn) NewIterator(prefix []byte) iterator.Iterator {
	return t.tr.NewIterator(util.BytesPrefix(prefix), nil)
}

func (t *txn) Put(key, value []byte) error {
	return t.tr.Put(key, value, nil)
}

type snapshot struct {
	snap *leveldb.Snapshot
}

func (s *snapshot) Get(key []byte) ([]byte, error) {
	return s.snap.Get(key, nil)
}

func (s *snapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

func (s *snapshot) NewIterator(prefix []byte) iterator.Iterator {
	return s.snap.NewIterator(util.BytesPrefix(prefix), nil)
}

func (s *snapshot) Put(key, value []byte) error {
	return ErrReadOnly
}
