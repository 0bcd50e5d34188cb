package scdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// maxUpdateMsgs caps how many updates a single package may decode to.
// Real packages carry one update per live WT^.
const maxUpdateMsgs = 4096

// WTPrimeState is where one WT^ stands in its verification period.
type WTPrimeState struct {
	Sidechain  uint8
	WTPrime    chainhash.Hash
	WorkScore  uint32
	BlocksLeft uint32
}

// wtKey identifies a WT^ within the SCDB.
type wtKey struct {
	sidechain uint8
	wtPrime   chainhash.Hash
}

func (s *WTPrimeState) key() wtKey {
	return wtKey{sidechain: s.Sidechain, wtPrime: s.WTPrime}
}

func (s WTPrimeState) String() string {
	return fmt.Sprintf("sc %d wt^ %s score %d left %d",
		s.Sidechain, s.WTPrime, s.WorkScore, s.BlocksLeft)
}

// less orders states by sidechain, then by WT^ hash bytes. This is the
// order the SCDB hash and the serialized snapshot use.
func less(a, b *WTPrimeState) bool {
	if a.Sidechain != b.Sidechain {
		return a.Sidechain < b.Sidechain
	}
	return bytes.Compare(a.WTPrime[:], b.WTPrime[:]) < 0
}

// SerializeSize returns the number of bytes Serialize writes.
func (s *WTPrimeState) SerializeSize() int {
	return 1 + chainhash.HashSize + 4 + 4
}

// Serialize writes the state as
// sidechain (1) | wt^ hash (32) | work score (4) | blocks left (4),
// integers big endian.
func (s *WTPrimeState) Serialize(w io.Writer) error {
	var buf [41]byte
	buf[0] = s.Sidechain
	copy(buf[1:33], s.WTPrime[:])
	binary.BigEndian.PutUint32(buf[33:37], s.WorkScore)
	binary.BigEndian.PutUint32(buf[37:41], s.BlocksLeft)
	_, err := w.Write(buf[:])
	return err
}

// Deserialize reads what Serialize wrote.
func (s *WTPrimeState) Deserialize(r io.Reader) error {
	var buf [41]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	s.Sidechain = buf[0]
	copy(s.WTPrime[:], buf[1:33])
	s.WorkScore = binary.BigEndian.Uint32(buf[33:37])
	s.BlocksLeft = binary.BigEndian.Uint32(buf[37:41])
	return nil
}

// UpdateMsg says what the work score of a WT^ becomes after one block.
type UpdateMsg struct {
	Sidechain uint8
	WTPrime   chainhash.Hash
	WorkScore uint32
}

func (m *UpdateMsg) key() wtKey {
	return wtKey{sidechain: m.Sidechain, wtPrime: m.WTPrime}
}

// SerializeSize returns the number of bytes Serialize writes.
func (m *UpdateMsg) SerializeSize() int {
	return 1 + chainhash.HashSize + 4
}

func (m *UpdateMsg) Serialize(w io.Writer) error {
	var buf [37]byte
	buf[0] = m.Sidechain
	copy(buf[1:33], m.WTPrime[:])
	binary.BigEndian.PutUint32(buf[33:37], m.WorkScore)
	_, err := w.Write(buf[:])
	return err
}

func (m *UpdateMsg) Deserialize(r io.Reader) error {
	var buf [37]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	m.Sidechain = buf[0]
	copy(m.WTPrime[:], buf[1:33])
	m.WorkScore = binary.BigEndian.Uint32(buf[33:37])
	return nil
}

// UpdatePackage is every score change a peer claims for the block at
// Height.
type UpdatePackage struct {
	Height  int32
	Updates []UpdateMsg
}

// SerializeSize returns the number of bytes Serialize writes.
func (p *UpdatePackage) SerializeSize() int {
	size := 4 + wire.VarIntSerializeSize(uint64(len(p.Updates)))
	for i := range p.Updates {
		size += p.Updates[i].SerializeSize()
	}
	return size
}

// Serialize writes the height, a varint count and then every update in
// order.
func (p *UpdatePackage) Serialize(w io.Writer) error {
	var h [4]byte
	binary.BigEndian.PutUint32(h[:], uint32(p.Height))
	if _, err := w.Write(h[:]); err != nil {
		return err
	}
	err := wire.WriteVarInt(w, 0, uint64(len(p.Updates)))
	if err != nil {
		return err
	}
	for i := range p.Updates {
		if err := p.Updates[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (p *UpdatePackage) Deserialize(r io.Reader) error {
	var h [4]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return err
	}
	p.Height = int32(binary.BigEndian.Uint32(h[:]))

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return err
	}
	if count > maxUpdateMsgs {
		return errTooManyEntries(count, maxUpdateMsgs)
	}
	p.Updates = make([]UpdateMsg, count)
	for i := range p.Updates {
		if err := p.Updates[i].Deserialize(r); err != nil {
			return err
		}
	}
	return nil
}

// PackageID is the double sha256 of the serialized package. Two packages
// with the same ID carry the same claim.
func (p *UpdatePackage) PackageID() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(p.SerializeSize())
	// writes to a bytes.Buffer don't fail
	_ = p.Serialize(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}
