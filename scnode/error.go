package scnode

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidNetwork = errors.New("Invalid/not supported net flag given")
	ErrHeightGap      = errors.New("Block height skips ahead of the SCDB")
	ErrNoCoinbase     = errors.New("Block has no coinbase")
	ErrBadMagic       = errors.New("Block record has wrong network magic")
	ErrBlockTooBig    = errors.New("Block record too big")
)

func errInvalidNetwork(nType string) error {
	return fmt.Errorf("%w: %s", ErrInvalidNetwork, nType)
}

func errHeightGap(height, last int32) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrHeightGap, height, last+1)
}

func errNoCoinbase(height int32) error {
	return fmt.Errorf("%w: height %d", ErrNoCoinbase, height)
}

func errBadMagic(got, want uint32) error {
	return fmt.Errorf("%w: %08x, want %08x", ErrBadMagic, got, want)
}

func errBlockTooBig(size uint32) error {
	return fmt.Errorf("%w: %d bytes", ErrBlockTooBig, size)
}
