// Package store keeps SCDB snapshots in leveldb so a restarted node comes
// back with the same SCDB hash it had.
package store

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mit-dci/sidechaindb/scdb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// latest serialized SCDB
	snapshotKey = []byte("scdb-snapshot")

	// SCDB hash that goes with snapshotKey
	snapshotHashKey = []byte("scdb-snapshot-hash")

	// prefix for the SCDB hash after each saved height
	digestPrefix = []byte("d")
)

// Store is a leveldb backed home for SCDB snapshots.
type Store struct {
	lvdb *leveldb.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	o := opt.Options{
		CompactionTableSizeMultiplier: 8,
		Compression:                   opt.NoCompression,
	}
	lvdb, err := leveldb.OpenFile(path, &o)
	if err != nil {
		return nil, err
	}
	return &Store{lvdb: lvdb}, nil
}

// OpenMem opens a store that only lives in memory.
func OpenMem() (*Store, error) {
	lvdb, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{lvdb: lvdb}, nil
}

func (s *Store) Close() error {
	return s.lvdb.Close()
}

func digestKey(height int32) []byte {
	key := make([]byte, len(digestPrefix)+4)
	copy(key, digestPrefix)
	binary.BigEndian.PutUint32(key[len(digestPrefix):], uint32(height))
	return key
}

// Save writes the SCDB snapshot and records its hash for its height, in
// one batch.
func (s *Store) Save(db *scdb.SidechainDB) error {
	var buf bytes.Buffer
	buf.Grow(db.SerializeSize())
	if err := db.Serialize(&buf); err != nil {
		return err
	}
	digest := db.GetSCDBHash()

	var batch leveldb.Batch
	batch.Put(snapshotKey, buf.Bytes())
	batch.Put(snapshotHashKey, digest[:])
	if height := db.Height(); height >= 0 {
		batch.Put(digestKey(height), digest[:])
	}
	return s.lvdb.Write(&batch, &opt.WriteOptions{Sync: true})
}

// Load reads the latest snapshot into db. It returns ErrNoSnapshot on an
// empty store and ErrCorruptSnapshot if the loaded SCDB doesn't hash to
// what was saved with it.
func (s *Store) Load(db *scdb.SidechainDB) error {
	raw, err := s.lvdb.Get(snapshotKey, nil)
	if err == leveldb.ErrNotFound {
		return ErrNoSnapshot
	}
	if err != nil {
		return err
	}
	saved, err := s.lvdb.Get(snapshotHashKey, nil)
	if err != nil {
		return err
	}

	loaded := scdb.New(db.Params())
	if err := loaded.Deserialize(bytes.NewReader(raw)); err != nil {
		return err
	}
	if got := loaded.GetSCDBHash(); !bytes.Equal(got[:], saved) {
		return errCorruptSnapshot(loaded.Height())
	}

	// second pass into the caller's SCDB; the bytes are known good now
	if err := db.Deserialize(bytes.NewReader(raw)); err != nil {
		return err
	}
	log.Infof("loaded SCDB at height %d, hash %s",
		db.Height(), db.GetSCDBHash())
	return nil
}

// DigestAt returns the SCDB hash saved for height.
func (s *Store) DigestAt(height int32) (chainhash.Hash, bool, error) {
	var h chainhash.Hash
	raw, err := s.lvdb.Get(digestKey(height), nil)
	if err == leveldb.ErrNotFound {
		return h, false, nil
	}
	if err != nil {
		return h, false, err
	}
	copy(h[:], raw)
	return h, true, nil
}

// Clear deletes every snapshot and saved hash, used when the SCDB is
// reset.
func (s *Store) Clear() error {
	var batch leveldb.Batch
	batch.Delete(snapshotKey)
	batch.Delete(snapshotHashKey)

	iter := s.lvdb.NewIterator(util.BytesPrefix(digestPrefix), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}
	return s.lvdb.Write(&batch, &opt.WriteOptions{Sync: true})
}
