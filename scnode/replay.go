package scnode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// ReplayBlocks connects every block in r, starting at startHeight. r holds
// records the way bitcoind's blk*.dat files do: network magic (4, little
// endian), block size (4, little endian), serialized block. Returns how
// many blocks were connected.
func (n *Node) ReplayBlocks(r io.Reader, net wire.BitcoinNet,
	startHeight int32) (int, error) {

	var hdr [8]byte
	height := startHeight
	for count := 0; ; count++ {
		_, err := io.ReadFull(r, hdr[:])
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		magic := binary.LittleEndian.Uint32(hdr[:4])
		if magic != uint32(net) {
			return count, errBadMagic(magic, uint32(net))
		}
		size := binary.LittleEndian.Uint32(hdr[4:])
		if size > wire.MaxBlockPayload {
			return count, errBlockTooBig(size)
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(r, raw); err != nil {
			return count, err
		}

		var msgBlock wire.MsgBlock
		err = msgBlock.Deserialize(bytes.NewReader(raw))
		if err != nil {
			return count, err
		}

		err = n.ConnectBlock(height, btcutil.NewBlock(&msgBlock))
		if err != nil {
			return count, err
		}
		height++
	}
}
