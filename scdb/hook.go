package scdb

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/sidechaindb/scdb/commitment"
)

// Update runs the SCDB through one connected block given the outputs of
// its coinbase.
//
// The verification period is advanced first, so a block on the boundary
// starts the new period. New WT^ commitments then enter with a work score
// of 1. If the coinbase commits to an SCDB hash, the queued update
// packages for height must reproduce it (ErrSCDBHashMismatch otherwise).
// Without a hash commitment the block's upvotes are counted directly.
// Either the whole block applies or nothing does.
func (db *SidechainDB) Update(height int32, blockHash chainhash.Hash,
	outs []*wire.TxOut) error {

	db.mtx.Lock()
	defer db.mtx.Unlock()

	if height <= db.st.height {
		return errNonMonotonicHeight(height, db.st.height)
	}

	work := db.st.clone()
	if _, err := work.advance(height); err != nil {
		return err
	}

	var (
		msgs     []UpdateMsg
		scdbHash *chainhash.Hash
		upvoted  = make(map[wtKey]bool)
	)
	commits := commitment.Extract(outs)
	for _, c := range commits {
		switch c.Kind {
		case commitment.KindWTPrime:
			if !db.params.IsValid(c.Sidechain) {
				return errInvalidSidechain(c.Sidechain)
			}
			if work.find(c.Sidechain, c.Hash) >= 0 {
				log.Debugf("block %s: WT^ %s already tracked",
					blockHash, c.Hash)
				continue
			}
			msgs = append(msgs, UpdateMsg{
				Sidechain: c.Sidechain,
				WTPrime:   c.Hash,
				WorkScore: 1,
			})

		case commitment.KindSCDBHash:
			h := c.Hash
			scdbHash = &h
		}
	}

	if scdbHash != nil {
		matched := db.match(work, height, msgs, *scdbHash)
		if matched == nil {
			return errSCDBHashMismatch(height, *scdbHash)
		}
		work = matched
	} else {
		for _, c := range commits {
			if c.Kind != commitment.KindUpvote {
				continue
			}
			if !db.params.IsValid(c.Sidechain) {
				return errInvalidSidechain(c.Sidechain)
			}
			k := wtKey{sidechain: c.Sidechain, wtPrime: c.Hash}
			i := work.find(c.Sidechain, c.Hash)
			if i < 0 || upvoted[k] {
				log.Debugf("block %s: ignoring upvote for WT^ %s",
					blockHash, c.Hash)
				continue
			}
			upvoted[k] = true
			msgs = append(msgs, UpdateMsg{
				Sidechain: c.Sidechain,
				WTPrime:   c.Hash,
				WorkScore: work.active[c.Sidechain][i].WorkScore + 1,
			})
		}
		if err := work.applyUpdates(height, msgs); err != nil {
			return err
		}
	}

	db.st = work
	db.pending.prune(height)
	log.Debugf("block %s height %d: %d WT^ updates, SCDB hash %s",
		blockHash, height, len(msgs), work.digest())
	return nil
}
