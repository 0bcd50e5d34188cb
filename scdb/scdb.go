package scdb

import (
	"reflect"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mit-dci/sidechaindb/sidechain"
)

// SidechainDB tracks every WT^ and its work score. Create one with New;
// the zero value is not usable.
type SidechainDB struct {
	mtx    sync.RWMutex
	params *sidechain.Params
	st     *scdbState

	// update packages relayed by peers, waiting for their block
	pending *packageQueue
}

// New returns an empty SCDB using the given params.
func New(params *sidechain.Params) *SidechainDB {
	return &SidechainDB{
		params:  params,
		st:      newState(params),
		pending: newPackageQueue(params.MaxPendingPackages),
	}
}

// Params returns the network parameters the SCDB was created with.
func (db *SidechainDB) Params() *sidechain.Params {
	return db.params
}

// Height returns the last block height the SCDB was updated for, or -1.
func (db *SidechainDB) Height() int32 {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.height
}

// UpdateSCDBIndex sets the given WT^ states for the block at height,
// adding any WT^ not seen before. WT^s that are not listed age by one
// block. Nothing changes if an error is returned.
func (db *SidechainDB) UpdateSCDBIndex(height int32, states []WTPrimeState) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return db.st.updateIndex(height, states)
}

// ApplyUpdates moves the SCDB forward one block using score updates: known
// WT^s take the new scores, unknown ones are added with a full
// verification period, and all WT^s tracked before the block age by one.
func (db *SidechainDB) ApplyUpdates(height int32, msgs []UpdateMsg) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return db.st.applyUpdates(height, msgs)
}

// AdvancePeriodIfElapsed ends the verification period if it has run out at
// height. Approved WT^s are archived and keep passing CheckWorkScore,
// everything else is dropped. Reports whether the period ended.
func (db *SidechainDB) AdvancePeriodIfElapsed(height int32) (bool, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return db.st.advance(height)
}

// CheckWorkScore returns true if the WT^ has reached the minimum work
// score. Unknown and expired WT^s return false.
func (db *SidechainDB) CheckWorkScore(sc uint8, wtPrime chainhash.Hash) bool {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.checkWorkScore(sc, wtPrime)
}

// GetState returns a copy of the active WT^s of one sidechain in the order
// they were first seen.
func (db *SidechainDB) GetState(sc uint8) []WTPrimeState {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return append([]WTPrimeState(nil), db.st.active[sc]...)
}

// GetStates returns every active WT^ sorted by sidechain and hash.
func (db *SidechainDB) GetStates() []WTPrimeState {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.sorted()
}

// GetApproved returns the WT^s approved in earlier periods.
func (db *SidechainDB) GetApproved() []WTPrimeState {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.sortedApproved()
}

// GetSCDBHash returns the digest of the active WT^ set.
func (db *SidechainDB) GetSCDBHash() chainhash.Hash {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.digest()
}

// Reset drops all state, including the archive and queued packages.
func (db *SidechainDB) Reset() {
	db.mtx.Lock()
	defer db.mtx.Unlock()

	db.st = newState(db.params)
	db.pending.reset()
	log.Infof("SCDB reset")
}

// Copy returns an independent SCDB with the same state. Queued update
// packages are not copied.
func (db *SidechainDB) Copy() *SidechainDB {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return &SidechainDB{
		params:  db.params,
		st:      db.st.clone(),
		pending: newPackageQueue(db.params.MaxPendingPackages),
	}
}

// Equal tells if two SCDBs hold the same WT^s, archive and heights.
// Insertion order within a sidechain is ignored.
func (db *SidechainDB) Equal(other *SidechainDB) bool {
	if db == other {
		return true
	}
	a, b := db.snapshot(), other.snapshot()
	return a.height == b.height && a.period == b.period &&
		reflect.DeepEqual(a.sorted(), b.sorted()) &&
		reflect.DeepEqual(a.sortedApproved(), b.sortedApproved())
}

// snapshot returns a clone of the state taken under the read lock.
func (db *SidechainDB) snapshot() *scdbState {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.st.clone()
}
