package scdb

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ComputeDigest returns the SCDB hash of a set of WT^ states. The order of
// states does not matter.
func ComputeDigest(states []WTPrimeState) chainhash.Hash {
	sorted := append([]WTPrimeState(nil), states...)
	sortStates(sorted)
	return merkleDigest(sorted)
}

// leafHash is the double sha256 of a serialized state.
func leafHash(s *WTPrimeState) chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(s.SerializeSize())
	_ = s.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// merkleDigest builds a bitcoin style merkle tree over the already sorted
// states (an odd node is paired with itself) and then hashes the root
// together with the number of leaves. Without the count, [a b c] and
// [a b c c] would have the same root. An empty SCDB hashes to zero.
func merkleDigest(sorted []WTPrimeState) chainhash.Hash {
	if len(sorted) == 0 {
		return chainhash.Hash{}
	}

	row := make([]*chainhash.Hash, len(sorted))
	for i := range sorted {
		h := leafHash(&sorted[i])
		row[i] = &h
	}
	for len(row) > 1 {
		if len(row)%2 == 1 {
			row = append(row, row[len(row)-1])
		}
		next := make([]*chainhash.Hash, len(row)/2)
		for i := range next {
			next[i] = blockchain.HashMerkleBranches(row[2*i], row[2*i+1])
		}
		row = next
	}

	var buf [chainhash.HashSize + 4]byte
	copy(buf[:chainhash.HashSize], row[0][:])
	binary.BigEndian.PutUint32(buf[chainhash.HashSize:], uint32(len(sorted)))
	return chainhash.DoubleHashH(buf[:])
}
