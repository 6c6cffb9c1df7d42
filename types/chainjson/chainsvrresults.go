// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainjson

// FakeHeaderResult models the fake header of a standalone block in a
// getblockinfo response.
type FakeHeaderResult struct {
	Version    int32  `json:"version"`
	MerkleRoot string `json:"merkleroot"`
	Time       int64  `json:"time"`
	Nonce      uint32 `json:"nonce"`
}

// AuxPowResult models the merge-mining proof in a getblockinfo response.
type AuxPowResult struct {
	ParentHash   string   `json:"parenthash"`
	ParentMerkle string   `json:"parentmerkle"`
	Branch       []string `json:"branch"`
	BranchIndex  uint32   `json:"branchindex"`
	ChainID      int32    `json:"chainid"`
}

// PowDataResult models the proof of work section of a getblockinfo
// response.  Exactly one of FakeHeader and AuxPow is present, matching the
// merge-mined flag.
type PowDataResult struct {
	Algo       string            `json:"algo"`
	MergeMined bool              `json:"mergemined"`
	Bits       string            `json:"bits"`
	FakeHeader *FakeHeaderResult `json:"fakeheader,omitempty"`
	AuxPow     *AuxPowResult     `json:"auxpow,omitempty"`
}

// GetBlockInfoResult models the data returned by the getblockinfo command.
type GetBlockInfoResult struct {
	Hash          string        `json:"hash"`
	Height        int32         `json:"height"`
	Confirmations int64         `json:"confirmations"`
	PreviousHash  string        `json:"previousblockhash,omitempty"`
	Time          int64         `json:"time"`
	PowData       PowDataResult `json:"powdata"`
	RngSeed       string        `json:"rngseed"`
	ChainWork     string        `json:"chainwork"`
}

// GenerateCmd defines the generate JSON-RPC command.  Address and PowAlgo
// are optional: without an address the block subsidy is unclaimed, without
// an algorithm the node's default standalone algorithm is used.
type GenerateCmd struct {
	NumBlocks uint32  `json:"numblocks"`
	Address   *string `json:"address,omitempty"`
	PowAlgo   *string `json:"powalgo,omitempty"`
}

// InvalidateBlockCmd defines the invalidateblock JSON-RPC command.
type InvalidateBlockCmd struct {
	BlockHash string `json:"blockhash"`
}

// ReconsiderBlockCmd defines the reconsiderblock JSON-RPC command.
type ReconsiderBlockCmd struct {
	BlockHash string `json:"blockhash"`
}

// GetBlockInfoCmd defines the getblockinfo JSON-RPC command.
type GetBlockInfoCmd struct {
	BlockHash string `json:"blockhash"`
}
