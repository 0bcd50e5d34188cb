// Package commitment reads and writes the sidechain commitments a miner
// puts into coinbase outputs. Every commitment is an OP_RETURN output
// carrying a single push: a 4 byte header followed by its payload.
package commitment

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Kind tells which commitment an output carries.
type Kind uint8

const (
	// KindNone is any output that is not a sidechain commitment
	KindNone Kind = iota

	// KindWTPrime announces a new WT^ for a sidechain
	KindWTPrime

	// KindUpvote adds one to the work score of a WT^
	KindUpvote

	// KindSCDBHash commits to the SCDB digest after this block
	KindSCDBHash
)

func (k Kind) String() string {
	switch k {
	case KindWTPrime:
		return "wtprime"
	case KindUpvote:
		return "upvote"
	case KindSCDBHash:
		return "scdbhash"
	}
	return "none"
}

var (
	wtPrimeHeader  = []byte{0xd4, 0x5a, 0xa9, 0x43}
	upvoteHeader   = []byte{0xd5, 0xe0, 0xc4, 0xaf}
	scdbHashHeader = []byte{0xd1, 0x61, 0x73, 0x68}
)

const headerLen = 4

var ErrNotCommitment = errors.New("script is not a sidechain commitment")

// Commitment is a decoded coinbase commitment. Sidechain is unused for
// KindSCDBHash.
type Commitment struct {
	Kind      Kind
	Sidechain uint8
	Hash      chainhash.Hash
}

// Script builds the OP_RETURN output script for the commitment.
func (c Commitment) Script() ([]byte, error) {
	var payload []byte
	switch c.Kind {
	case KindWTPrime:
		payload = append(payload, wtPrimeHeader...)
		payload = append(payload, c.Sidechain)
	case KindUpvote:
		payload = append(payload, upvoteHeader...)
		payload = append(payload, c.Sidechain)
	case KindSCDBHash:
		payload = append(payload, scdbHashHeader...)
	default:
		return nil, ErrNotCommitment
	}
	payload = append(payload, c.Hash[:]...)

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(payload).
		Script()
}

// TxOut wraps the commitment script in a zero value output.
func (c Commitment) TxOut() (*wire.TxOut, error) {
	pkScript, err := c.Script()
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(0, pkScript), nil
}

// Parse decodes a pkScript. Anything that is not a well formed
// commitment returns ErrNotCommitment.
func Parse(pkScript []byte) (Commitment, error) {
	var c Commitment
	if txscript.GetScriptClass(pkScript) != txscript.NullDataTy {
		return c, ErrNotCommitment
	}
	pushes, err := txscript.PushedData(pkScript)
	if err != nil || len(pushes) != 1 {
		return c, ErrNotCommitment
	}
	data := pushes[0]
	if len(data) < headerLen {
		return c, ErrNotCommitment
	}

	header, body := data[:headerLen], data[headerLen:]
	switch {
	case bytes.Equal(header, wtPrimeHeader):
		c.Kind = KindWTPrime
	case bytes.Equal(header, upvoteHeader):
		c.Kind = KindUpvote
	case bytes.Equal(header, scdbHashHeader):
		c.Kind = KindSCDBHash
	default:
		return c, ErrNotCommitment
	}

	if c.Kind != KindSCDBHash {
		if len(body) != 1+chainhash.HashSize {
			return Commitment{}, ErrNotCommitment
		}
		c.Sidechain = body[0]
		body = body[1:]
	}
	if len(body) != chainhash.HashSize {
		return Commitment{}, ErrNotCommitment
	}
	copy(c.Hash[:], body)
	return c, nil
}

// Extract returns every commitment found in the outputs, in output order.
func Extract(outs []*wire.TxOut) []Commitment {
	var found []Commitment
	for _, out := range outs {
		if out == nil {
			continue
		}
		c, err := Parse(out.PkScript)
		if err != nil {
			continue
		}
		found = append(found, c)
	}
	return found
}
