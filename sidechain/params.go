package sidechain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Sidechain is one auxiliary chain the main chain knows about.
type Sidechain struct {
	Index uint8
	Name  string
}

func (s Sidechain) String() string {
	return fmt.Sprintf("%s(%d)", s.Name, s.Index)
}

// Params holds the withdrawal approval rules for one network.
type Params struct {
	// Main chain this set of sidechains is anchored to
	Net *chaincfg.Params

	// Number of blocks a WT^ has to collect its work score in
	VerificationPeriod uint32

	// Work score a WT^ needs before its period runs out to be approved
	MinWorkScore uint32

	// Upper bound on queued update packages waiting for a block
	MaxPendingPackages int

	Sidechains []Sidechain
}

// IsValid returns whether the given index names a known sidechain.
func (p *Params) IsValid(index uint8) bool {
	for _, s := range p.Sidechains {
		if s.Index == index {
			return true
		}
	}
	return false
}

// Name returns the name of a sidechain, or "unknown".
func (p *Params) Name(index uint8) string {
	for _, s := range p.Sidechains {
		if s.Index == index {
			return s.Name
		}
	}
	return "unknown"
}

var defaultSidechains = []Sidechain{
	{Index: 0, Name: "Test"},
	{Index: 1, Name: "Hivemind"},
	{Index: 2, Name: "Wimble"},
}

// MainNetParams follow the BIP300 numbers: a WT^ needs 13150 upvotes
// within 26300 blocks.
var MainNetParams = Params{
	Net:                &chaincfg.MainNetParams,
	VerificationPeriod: 26300,
	MinWorkScore:       13150,
	MaxPendingPackages: 1024,
	Sidechains:         defaultSidechains,
}

var TestNet3Params = Params{
	Net:                &chaincfg.TestNet3Params,
	VerificationPeriod: 300,
	MinWorkScore:       150,
	MaxPendingPackages: 1024,
	Sidechains:         defaultSidechains,
}

// RegressionNetParams are small enough to walk a full period in tests.
var RegressionNetParams = Params{
	Net:                &chaincfg.RegressionNetParams,
	VerificationPeriod: 100,
	MinWorkScore:       100,
	MaxPendingPackages: 64,
	Sidechains:         defaultSidechains,
}

// ParamsForNet returns the sidechain params for a network name as used
// by chaincfg ("mainnet", "testnet3", "regtest").
func ParamsForNet(name string) (*Params, bool) {
	switch name {
	case chaincfg.MainNetParams.Name:
		return &MainNetParams, true
	case chaincfg.TestNet3Params.Name:
		return &TestNet3Params, true
	case chaincfg.RegressionNetParams.Name:
		return &RegressionNetParams, true
	}
	return nil, false
}
