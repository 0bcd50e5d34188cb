package scdb

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

var (
	ErrInvalidSidechain   = errors.New("Invalid sidechain")
	ErrNonMonotonicHeight = errors.New("Height not above last processed height")
	ErrDuplicateWTPrime   = errors.New("WT^ already tracked on another sidechain")
	ErrInvalidBlocksLeft  = errors.New("Blocks left exceeds verification period")
	ErrScoreDecrease      = errors.New("Work score decrease")
	ErrSCDBHashMismatch   = errors.New("SCDB hash commitment not reproduced")
	ErrTooManyEntries     = errors.New("Too many entries")
)

func errInvalidSidechain(n uint8) error {
	return fmt.Errorf("%w: %d", ErrInvalidSidechain, n)
}

func errNonMonotonicHeight(height, last int32) error {
	return fmt.Errorf("%w: got %d, last %d", ErrNonMonotonicHeight, height, last)
}

func errDuplicateWTPrime(hash chainhash.Hash, have, got uint8) error {
	return fmt.Errorf("%w: %s on sidechain %d, got %d",
		ErrDuplicateWTPrime, hash, have, got)
}

func errInvalidBlocksLeft(left, period uint32) error {
	return fmt.Errorf("%w: %d > %d", ErrInvalidBlocksLeft, left, period)
}

func errScoreDecrease(hash chainhash.Hash, have, got uint32) error {
	return fmt.Errorf("%w: %s from %d to %d", ErrScoreDecrease, hash, have, got)
}

func errSCDBHashMismatch(height int32, hash chainhash.Hash) error {
	return fmt.Errorf("%w: height %d hash %s", ErrSCDBHashMismatch, height, hash)
}

func errTooManyEntries(n, max uint64) error {
	return fmt.Errorf("%w: %d > %d", ErrTooManyEntries, n, max)
}
