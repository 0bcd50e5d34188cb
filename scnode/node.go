// Package scnode runs an SCDB on a node: it feeds connected blocks into the
// SCDB in height order, takes update packages from peers and keeps a
// snapshot on disk after every block.
package scnode

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/mit-dci/sidechaindb/scdb"
	"github.com/mit-dci/sidechaindb/sidechain"
	"github.com/mit-dci/sidechaindb/store"
)

// Node owns the SCDB of one node and its store.
type Node struct {
	// serializes block connection and resets
	mtx sync.Mutex

	db    *scdb.SidechainDB
	store *store.Store
}

// New opens the store named by cfg and loads the last saved SCDB from it,
// or starts from an empty SCDB.
func New(cfg *Config) (*Node, error) {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	n, err := newNode(cfg.Params(), st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return n, nil
}

func newNode(params *sidechain.Params, st *store.Store) (*Node, error) {
	db := scdb.New(params)
	err := st.Load(db)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		log.Infof("no saved SCDB, starting empty")
	case err != nil:
		return nil, err
	}
	return &Node{db: db, store: st}, nil
}

// SCDB gives read access for queries: CheckWorkScore, GetState and
// GetSCDBHash. Blocks must go through ConnectBlock.
func (n *Node) SCDB() *scdb.SidechainDB {
	return n.db
}

// ConnectBlock feeds a newly connected main chain block into the SCDB.
// Blocks have to come one height at a time: a height at or below the last
// one returns scdb.ErrNonMonotonicHeight, a skipped height returns
// ErrHeightGap. The first block after an empty SCDB may have any height.
func (n *Node) ConnectBlock(height int32, block *btcutil.Block) error {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	last := n.db.Height()
	if last >= 0 && height > last+1 {
		return errHeightGap(height, last)
	}

	txs := block.Transactions()
	if len(txs) == 0 || !blockchain.IsCoinBaseTx(txs[0].MsgTx()) {
		return errNoCoinbase(height)
	}

	err := n.db.Update(height, *block.Hash(), txs[0].MsgTx().TxOut)
	if err != nil {
		return err
	}
	if err := n.store.Save(n.db); err != nil {
		return err
	}

	if height%1000 == 0 {
		log.Infof("SCDB at height %d, hash %s", height, n.db.GetSCDBHash())
	}
	return nil
}

// RelayPackage takes an update package from a peer.
func (n *Node) RelayPackage(pkg scdb.UpdatePackage) error {
	err := n.db.AddUpdatePackage(pkg)
	if err != nil {
		log.Debugf("rejected update package for height %d: %v",
			pkg.Height, err)
	}
	return err
}

// ResetSCDB throws away the SCDB and its saved snapshots. Used when the
// main chain reorganizes deeper than the SCDB can follow.
func (n *Node) ResetSCDB() error {
	n.mtx.Lock()
	defer n.mtx.Unlock()

	n.db.Reset()
	return n.store.Clear()
}

// Close closes the store.
func (n *Node) Close() error {
	return n.store.Close()
}

// DigestAt returns the SCDB hash saved after the block at height.
func (n *Node) DigestAt(height int32) (chainhash.Hash, bool, error) {
	return n.store.DigestAt(height)
}
