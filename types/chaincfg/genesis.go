// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// Per-network genesis content commitments.  They must differ: the block hash
// covers only the content fields, so identical content would make the two
// networks share a genesis hash.
var (
	genesisMerkleRoot        = chainhash.DoubleHashH([]byte("dyad genesis"))
	regTestGenesisMerkleRoot = chainhash.DoubleHashH([]byte("dyad regtest genesis"))
)

// genesisBlock defines the genesis block of the main network block chain.
// Its proof is never validated; the empty fake header only keeps the
// structural rule that a standalone block carries one.
var genesisBlock = wire.BlockHeader{
	Version:    1,
	Height:     0,
	PrevBlock:  chainhash.ZeroHash,
	MerkleRoot: genesisMerkleRoot,
	Timestamp:  time.Unix(0x66b9c300, 0), // 2024-08-12 06:40:00 +0000 UTC
	PowData: wire.PowData{
		Algo:       pow.AlgoScrypt,
		Bits:       mainNetPowLimitBitsScrypt,
		FakeHeader: &wire.FakeHeader{},
	},
}

// regTestGenesisBlock defines the genesis block of the regression test
// network block chain.
var regTestGenesisBlock = wire.BlockHeader{
	Version:    1,
	Height:     0,
	PrevBlock:  chainhash.ZeroHash,
	MerkleRoot: regTestGenesisMerkleRoot,
	Timestamp:  time.Unix(0x66b9c300, 0),
	PowData: wire.PowData{
		Algo:       pow.AlgoScrypt,
		Bits:       regNetPowLimitBits,
		FakeHeader: &wire.FakeHeader{},
	},
}
