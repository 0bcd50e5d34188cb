package store

import (
	"errors"
	"fmt"
)

var (
	ErrNoSnapshot      = errors.New("No SCDB snapshot stored")
	ErrCorruptSnapshot = errors.New("Stored SCDB snapshot doesn't match its hash")
)

func errCorruptSnapshot(height int32) error {
	return fmt.Errorf("%w: height %d", ErrCorruptSnapshot, height)
}
