// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/database"
	"gitlab.com/dyadchain/dyadd/node/chaindata"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// harness bundles a chain over an in-memory store with helpers for building
// and delivering solved headers.
type harness struct {
	t      *testing.T
	chain  *BlockChain
	params *chaincfg.Params
}

// testNow returns the wall clock the test chains run on: far enough past the
// genesis timestamp that fabricated block times are never "too far in the
// future".
func testNow(params *chaincfg.Params) func() time.Time {
	base := params.GenesisBlock.Timestamp.Add(365 * 24 * time.Hour)
	return func() time.Time { return base }
}

func newHarnessWithParams(t *testing.T, params *chaincfg.Params, store database.BlockStore) *harness {
	t.Helper()

	if store == nil {
		var err error
		store, err = database.OpenMemoryStore()
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
	}

	chain, err := New(&Config{
		DB:          store,
		ChainParams: params,
		TimeSource:  testNow(params),
	})
	require.NoError(t, err)

	return &harness{t: t, chain: chain, params: params}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithParams(t, &chaincfg.RegressionNetParams, nil)
}

func (h *harness) genesis() *wire.BlockHeader {
	return h.params.GenesisBlock
}

// buildHeader assembles an unsolved header extending parent, with the bits
// the chain demands for the block's algorithm.
func (h *harness) buildHeader(parent *wire.BlockHeader, algo pow.PowAlgo, salt string) *wire.BlockHeader {
	h.t.Helper()

	parentHash := parent.BlockHash()
	parentNode := h.chain.index.LookupNode(&parentHash)
	require.NotNil(h.t, parentNode, "parent %s is not in the index", parentHash)

	timestamp := parent.Timestamp.Add(time.Minute)
	bits, err := h.chain.calcNextRequiredDifficulty(parentNode, algo, timestamp)
	require.NoError(h.t, err)

	return &wire.BlockHeader{
		Version:    1,
		Height:     parent.Height + 1,
		PrevBlock:  parentHash,
		MerkleRoot: chainhash.DoubleHashH([]byte(salt)),
		Timestamp:  timestamp,
		PowData: wire.PowData{
			Algo: algo,
			Bits: bits,
		},
	}
}

// solve attaches a valid proof to the header: a mined fake header for
// standalone algorithms, a fabricated external parent for merge-mined ones.
func (h *harness) solve(header *wire.BlockHeader) {
	h.t.Helper()

	target := pow.CompactToBig(header.PowData.Bits)
	if header.PowData.MergeMined() {
		blockHash := header.BlockHash()
		leaves := []chainhash.Hash{
			wire.CommitmentLeaf(blockHash),
			chainhash.HashH([]byte("parent coinbase")),
		}
		aux := &wire.AuxPow{
			Parent: wire.ExternalHeader{
				Version:    2,
				MerkleRoot: chainhash.MerkleTreeRoot(leaves),
				Timestamp:  header.Timestamp,
				Bits:       header.PowData.Bits,
			},
			CoinbaseBranch: chainhash.BuildMerkleTreeProof(leaves),
			BranchIndex:    0,
			ChainID:        h.params.ChainID,
		}
		for {
			parentHash := aux.Parent.BlockHash()
			if pow.HashToBig(&parentHash).Cmp(target) <= 0 {
				break
			}
			aux.Parent.Nonce++
		}
		header.PowData.AuxPow = aux
		return
	}

	fh := wire.NewFakeHeader(header.BlockHash())
	for {
		powHash, err := fh.PowHash(header.PowData.CoreAlgo())
		require.NoError(h.t, err)
		if pow.HashToBig(&powHash).Cmp(target) <= 0 {
			break
		}
		fh.Nonce++
	}
	header.PowData.FakeHeader = fh
}

// extend mines one block of the given algorithm on top of parent and
// delivers it.
func (h *harness) extend(parent *wire.BlockHeader, algo pow.PowAlgo, salt string) (*wire.BlockHeader, bool, error) {
	h.t.Helper()

	header := h.buildHeader(parent, algo, salt)
	h.solve(header)
	isMainChain, err := h.chain.ProcessBlock(header, chaindata.BFNone)
	return header, isMainChain, err
}

func (h *harness) mustExtend(parent *wire.BlockHeader, algo pow.PowAlgo, salt string) (*wire.BlockHeader, bool) {
	h.t.Helper()

	header, isMainChain, err := h.extend(parent, algo, salt)
	require.NoError(h.t, err)
	return header, isMainChain
}

// mustExtendChain mines count blocks on top of parent and returns the full
// new branch.
func (h *harness) mustExtendChain(parent *wire.BlockHeader, count int, algo pow.PowAlgo, salt string) []*wire.BlockHeader {
	h.t.Helper()

	headers := make([]*wire.BlockHeader, 0, count)
	for i := 0; i < count; i++ {
		header, _ := h.mustExtend(parent, algo, salt)
		headers = append(headers, header)
		parent = header
	}
	return headers
}
