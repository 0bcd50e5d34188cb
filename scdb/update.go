package scdb

import (
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	lru "github.com/hashicorp/golang-lru"
)

// packageQueue holds relayed update packages by the height they claim.
// It has its own lock; callers holding the SCDB lock as well take that one
// first.
type packageQueue struct {
	mtx      sync.Mutex
	byHeight map[int32][]UpdatePackage
	count    int
	max      int

	// IDs of packages already queued, so relayed duplicates are dropped
	seen *lru.Cache
}

func newPackageQueue(max int) *packageQueue {
	if max <= 0 {
		max = 1
	}
	// only fails on a non-positive size
	seen, _ := lru.New(2 * max)
	return &packageQueue{
		byHeight: make(map[int32][]UpdatePackage),
		max:      max,
		seen:     seen,
	}
}

// add queues a package. Returns false if it was seen before.
func (q *packageQueue) add(pkg UpdatePackage) bool {
	id := pkg.PackageID()

	q.mtx.Lock()
	defer q.mtx.Unlock()

	if q.seen.Contains(id) {
		return false
	}
	q.seen.Add(id, pkg.Height)

	pkg.Updates = append([]UpdateMsg(nil), pkg.Updates...)
	q.byHeight[pkg.Height] = append(q.byHeight[pkg.Height], pkg)
	q.count++

	// over the limit, throw out the lowest heights first
	for q.count > q.max {
		lowest := q.heightsLocked()[0]
		q.count -= len(q.byHeight[lowest])
		delete(q.byHeight, lowest)
		log.Debugf("package queue full, dropped packages for height %d",
			lowest)
	}
	return true
}

// get returns the packages queued for height in arrival order.
func (q *packageQueue) get(height int32) []UpdatePackage {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return append([]UpdatePackage(nil), q.byHeight[height]...)
}

// prune drops every package at or below height.
func (q *packageQueue) prune(height int32) {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	for h, pkgs := range q.byHeight {
		if h <= height {
			q.count -= len(pkgs)
			delete(q.byHeight, h)
		}
	}
}

func (q *packageQueue) reset() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.byHeight = make(map[int32][]UpdatePackage)
	q.count = 0
	q.seen.Purge()
}

func (q *packageQueue) len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.count
}

func (q *packageQueue) heightsLocked() []int32 {
	heights := make([]int32, 0, len(q.byHeight))
	for h := range q.byHeight {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// AddUpdatePackage queues a package relayed by a peer until a block at its
// height shows up. The SCDB itself is not touched. A package naming an
// unknown sidechain is rejected; duplicates and packages for heights
// already processed are silently ignored.
func (db *SidechainDB) AddUpdatePackage(pkg UpdatePackage) error {
	for i := range pkg.Updates {
		if !db.params.IsValid(pkg.Updates[i].Sidechain) {
			return errInvalidSidechain(pkg.Updates[i].Sidechain)
		}
	}

	// held until the package is queued so a block can't be processed
	// between the height check and the add
	db.mtx.RLock()
	defer db.mtx.RUnlock()

	if height := db.st.height; pkg.Height <= height {
		log.Debugf("ignoring update package for height %d, at %d",
			pkg.Height, height)
		return nil
	}
	if !db.pending.add(pkg) {
		log.Tracef("duplicate update package for height %d", pkg.Height)
	}
	return nil
}

// PendingPackages returns how many relayed packages are queued.
func (db *SidechainDB) PendingPackages() int {
	return db.pending.len()
}

// TryMatch applies the packages queued for height to a copy of the SCDB and
// keeps the copy only if its hash equals expected. A miss is not an error:
// it returns false and leaves the SCDB as it was. Asking again for a height
// that already matched returns true.
func (db *SidechainDB) TryMatch(height int32, expected chainhash.Hash) (bool, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()

	if height == db.st.height && db.st.digest() == expected {
		return true, nil
	}
	if height <= db.st.height {
		return false, errNonMonotonicHeight(height, db.st.height)
	}

	work := db.match(db.st, height, nil, expected)
	if work == nil {
		return false, nil
	}
	db.st = work
	db.pending.prune(height)
	return true, nil
}

// match applies the given updates followed by every package queued for
// height, in arrival order, to a copy of base. When two updates name the
// same WT^ the later one wins. Returns the new state if its hash equals
// expected, nil otherwise. base is never modified.
func (db *SidechainDB) match(base *scdbState,
	height int32, seed []UpdateMsg, expected chainhash.Hash) *scdbState {

	msgs := append([]UpdateMsg(nil), seed...)
	for _, pkg := range db.pending.get(height) {
		msgs = append(msgs, pkg.Updates...)
	}

	work := base.clone()
	if err := work.applyUpdates(height, msgs); err != nil {
		log.Debugf("update packages for height %d rejected: %v",
			height, err)
		return nil
	}
	got := work.digest()
	if got != expected {
		log.Tracef("SCDB hash %s at height %d, want %s", got, height,
			expected)
		return nil
	}
	log.Debugf("SCDB hash %s matched at height %d with %d updates",
		got, height, len(msgs))
	return work
}
