// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters for the supported
// networks.
package chaincfg

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// ChainNet represents which dyad network a message belongs to.
type ChainNet uint32

const (
	// MainNet represents the main dyad network.
	MainNet ChainNet = 0xd9ad6d01

	// RegNet represents the regression test network.
	RegNet ChainNet = 0xd9ad6dc1
)

var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainNetPowLimitScrypt is the highest proof of work value a scrypt
	// block can have on the main network: 2^236 - 1.
	mainNetPowLimitScrypt            = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 236), bigOne)
	mainNetPowLimitBitsScrypt uint32 = 0x1e0fffff

	// mainNetPowLimitSHA256D is the sha256d limit: the scrypt limit
	// divided by the cross-algorithm work factor, 2^226 - 1.  The parent
	// chain's sha256d hash rate is plentiful, so sha256d blocks start a
	// factor of 1024 harder.
	mainNetPowLimitSHA256D            = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 226), bigOne)
	mainNetPowLimitBitsSHA256D uint32 = 0x1d03ffff

	// regNetPowLimit is shared by both algorithms on the regression
	// network so that blocks of either kind are minable instantly.
	regNetPowLimit            = pow.CompactToBig(0x207fffff)
	regNetPowLimitBits uint32 = 0x207fffff
)

// PowParams houses the per-network proof of work parameters.
type PowParams struct {
	// PowLimitScrypt and PowLimitSHA256D define the lowest possible
	// difficulty per algorithm, with the matching compact encodings.
	PowLimitScrypt      *big.Int
	PowLimitBitsScrypt  uint32
	PowLimitSHA256D     *big.Int
	PowLimitBitsSHA256D uint32

	// TargetTimespan is the desired amount of time that should elapse
	// before the block difficulty requirement is examined to determine
	// how it should be changed in order to maintain the desired block
	// generation rate.
	TargetTimespan time.Duration

	// TargetTimePerBlock is the desired amount of time to generate each
	// block, counted per algorithm.
	TargetTimePerBlock time.Duration

	// RetargetAdjustmentFactor is the adjustment factor used to limit
	// the minimum and maximum amount of adjustment that can occur between
	// difficulty retargets.
	RetargetAdjustmentFactor int64

	// ReduceMinDifficulty defines whether the network should reduce the
	// minimum required difficulty after a long enough period of time has
	// passed without finding a block.  This is really only useful for
	// test networks and should not be set on a main network.
	ReduceMinDifficulty bool

	// MinDiffReductionTime is the amount of time after which the minimum
	// required difficulty should be reduced when a block hasn't been
	// found.  It is only used when ReduceMinDifficulty is true.
	MinDiffReductionTime time.Duration

	// GenerateSupported specifies whether or not CPU mining is allowed.
	GenerateSupported bool
}

// Params defines a dyad network by its parameters.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net ChainNet

	// ChainID is this chain's merge-mining identity.  An aux pow tagged
	// with any other id is a replayed proof and must be rejected.
	ChainID int32

	PowParams PowParams

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.BlockHeader

	// GenesisHash is the starting block hash, filled in at init time.
	GenesisHash chainhash.Hash
}

// PowLimitForAlgo returns the highest proof of work value (the easiest
// target) allowed for the passed algorithm on this network.
func (p *Params) PowLimitForAlgo(algo pow.PowAlgo) (*big.Int, error) {
	switch algo.Core() {
	case pow.AlgoScrypt:
		return p.PowParams.PowLimitScrypt, nil
	case pow.AlgoSHA256D:
		return p.PowParams.PowLimitSHA256D, nil
	}
	return nil, errors.Wrapf(pow.ErrUnknownAlgo, "no pow limit for algo %#02x", uint8(algo))
}

// PowLimitBitsForAlgo returns the compact encoding of the algorithm's pow
// limit.
func (p *Params) PowLimitBitsForAlgo(algo pow.PowAlgo) (uint32, error) {
	switch algo.Core() {
	case pow.AlgoScrypt:
		return p.PowParams.PowLimitBitsScrypt, nil
	case pow.AlgoSHA256D:
		return p.PowParams.PowLimitBitsSHA256D, nil
	}
	return 0, errors.Wrapf(pow.ErrUnknownAlgo, "no pow limit for algo %#02x", uint8(algo))
}

// MainNetParams defines the network parameters for the main dyad network.
var MainNetParams = Params{
	Name:    "mainnet",
	Net:     MainNet,
	ChainID: 1829,

	PowParams: PowParams{
		PowLimitScrypt:           mainNetPowLimitScrypt,
		PowLimitBitsScrypt:       mainNetPowLimitBitsScrypt,
		PowLimitSHA256D:          mainNetPowLimitSHA256D,
		PowLimitBitsSHA256D:      mainNetPowLimitBitsSHA256D,
		TargetTimespan:           time.Hour * 24, // 1 day
		TargetTimePerBlock:       time.Minute,    // 1 minute per algorithm
		RetargetAdjustmentFactor: 4,              // 25% less, 400% more
		ReduceMinDifficulty:      false,
		MinDiffReductionTime:     0,
		GenerateSupported:        false,
	},

	GenesisBlock: &genesisBlock,
}

// RegressionNetParams defines the network parameters for the regression test
// network.  Both algorithms share one trivial pow limit so that tests can
// mine either kind of block instantly.
var RegressionNetParams = Params{
	Name:    "regtest",
	Net:     RegNet,
	ChainID: 1829,

	PowParams: PowParams{
		PowLimitScrypt:           regNetPowLimit,
		PowLimitBitsScrypt:       regNetPowLimitBits,
		PowLimitSHA256D:          regNetPowLimit,
		PowLimitBitsSHA256D:      regNetPowLimitBits,
		TargetTimespan:           time.Hour * 24,
		TargetTimePerBlock:       time.Minute,
		RetargetAdjustmentFactor: 4,
		ReduceMinDifficulty:      true,
		MinDiffReductionTime:     time.Minute * 2,
		GenerateSupported:        true,
	},

	GenesisBlock: &regTestGenesisBlock,
}

func init() {
	MainNetParams.GenesisHash = MainNetParams.GenesisBlock.BlockHash()
	RegressionNetParams.GenesisHash = RegressionNetParams.GenesisBlock.BlockHash()
}
