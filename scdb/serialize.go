package scdb

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
)

// maxSnapshotEntries bounds each list read back from a snapshot.
const maxSnapshotEntries = 1 << 20

// SerializeSize returns the number of bytes Serialize writes.
func (db *SidechainDB) SerializeSize() int {
	st := db.snapshot()
	active, approved := st.sorted(), st.sortedApproved()
	var wt WTPrimeState
	return 12 +
		wire.VarIntSerializeSize(uint64(len(active))) +
		wire.VarIntSerializeSize(uint64(len(approved))) +
		(len(active)+len(approved))*wt.SerializeSize()
}

// Serialize writes the consensus state of the SCDB:
//
//	height (4) | period start (4) | last period height (4) |
//	varint n | n active states | varint m | m approved states
//
// States are written sorted the same way the SCDB hash sorts them, so a
// node loading the snapshot gets the same hash back. Queued packages are
// not part of the snapshot.
func (db *SidechainDB) Serialize(w io.Writer) error {
	st := db.snapshot()

	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(st.height))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(st.period.start))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(st.period.last))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	for _, states := range [][]WTPrimeState{st.sorted(), st.sortedApproved()} {
		err := wire.WriteVarInt(w, 0, uint64(len(states)))
		if err != nil {
			return err
		}
		for i := range states {
			if err := states[i].Serialize(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// Deserialize replaces the SCDB state with a snapshot written by
// Serialize. On error the SCDB is left unchanged.
func (db *SidechainDB) Deserialize(r io.Reader) error {
	st := newState(db.params)

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	st.height = int32(binary.BigEndian.Uint32(hdr[0:4]))
	st.period.start = int32(binary.BigEndian.Uint32(hdr[4:8]))
	st.period.last = int32(binary.BigEndian.Uint32(hdr[8:12]))

	active, err := readStates(r, db.params.IsValid)
	if err != nil {
		return err
	}
	for _, wt := range active {
		st.active[wt.Sidechain] = append(st.active[wt.Sidechain], wt)
	}
	approved, err := readStates(r, db.params.IsValid)
	if err != nil {
		return err
	}
	for _, wt := range approved {
		st.approved[wt.key()] = wt
	}

	db.mtx.Lock()
	db.st = st
	db.mtx.Unlock()
	db.pending.prune(st.height)
	return nil
}

func readStates(r io.Reader, valid func(uint8) bool) ([]WTPrimeState, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > maxSnapshotEntries {
		return nil, errTooManyEntries(count, maxSnapshotEntries)
	}
	states := make([]WTPrimeState, count)
	for i := range states {
		if err := states[i].Deserialize(r); err != nil {
			return nil, err
		}
		if !valid(states[i].Sidechain) {
			return nil, errInvalidSidechain(states[i].Sidechain)
		}
	}
	return states, nil
}
