package storage

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/voxfeat/voxfeat"
)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Path is the database directory, created if missing.  Ignored when InMemory.
	Path string

	InMemory bool
	ReadOnly bool

	// SyncWrites syncs every write to disk at the cost of speed.  Otherwise the
	// store is synced periodically.
	SyncWrites bool
}

// BadgerStore is a Store backed by BadgerDB.
type BadgerStore struct {
	directory string
	bdp       *badger.DB

	// stopSyncCh signals the sync goroutine to stop.
	stopSyncCh chan struct{}
	syncDone   chan struct{}
}

const syncInterval = 30 * time.Second

// OpenBadger opens or creates a badger database.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("path must be specified for badger store")
		}
		if _, err := os.Stat(opts.Path); os.IsNotExist(err) {
			voxfeat.Infof("Database not already at path (%s). Creating directory...\n", opts.Path)
			if err := os.MkdirAll(opts.Path, 0744); err != nil {
				return nil, fmt.Errorf("can't make directory at %s: %v", opts.Path, err)
			}
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithSyncWrites(opts.SyncWrites).WithLogger(badgerLogger{})

	bdp, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	db := &BadgerStore{directory: opts.Path, bdp: bdp}
	if !opts.InMemory && !opts.SyncWrites && !opts.ReadOnly {
		db.stopSyncCh = make(chan struct{})
		db.syncDone = make(chan struct{})
		go db.syncPeriodically()
	}
	voxfeat.Infof("Opened %s\n", db)
	return db, nil
}

// Periodically sync to prevent too many writes from being buffered if we crash.
func (db *BadgerStore) syncPeriodically() {
	defer close(db.syncDone)
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			return
		case <-ticker.C:
			if err := db.bdp.Sync(); err != nil {
				voxfeat.Errorf("Unable to sync %s: %v\n", db, err)
			}
		}
	}
}

func (db *BadgerStore) String() string {
	if db.directory == "" {
		return "badger (in-memory)"
	}
	return fmt.Sprintf("badger @ %s", db.directory)
}

func (db *BadgerStore) Put(key, value []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Put on closed badger store")
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (db *BadgerStore) Get(key []byte) ([]byte, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call Get on closed badger store")
	}
	var v []byte
	err := db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	return v, err
}

func (db *BadgerStore) Delete(key []byte) error {
	if db == nil || db.bdp == nil {
		return fmt.Errorf("can't call Delete on closed badger store")
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (db *BadgerStore) Keys(prefix []byte) ([][]byte, error) {
	if db == nil || db.bdp == nil {
		return nil, fmt.Errorf("can't call Keys on closed badger store")
	}
	var keys [][]byte
	err := db.bdp.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // key only
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Close stops background syncing and closes the database.
func (db *BadgerStore) Close() error {
	if db == nil || db.bdp == nil {
		return nil
	}
	if db.stopSyncCh != nil {
		close(db.stopSyncCh)
		<-db.syncDone
	}
	err := db.bdp.Close()
	db.bdp = nil
	voxfeat.Infof("Closed %s\n", db)
	return err
}

// badgerLogger routes badger's internal logging through our logger, demoting its
// chatty info output to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { voxfeat.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { voxfeat.Warningf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { voxfeat.Debugf(format, args...) }
func (badgerLogger) Debugf(format string, args ...interface{})   { voxfeat.Debugf(format, args...) }
