// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cpuminer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/corelog"
	"gitlab.com/dyadchain/dyadd/database"
	"gitlab.com/dyadchain/dyadd/node/blockchain"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

func newTestMiner(t *testing.T) (*CPUMiner, *blockchain.BlockChain) {
	t.Helper()

	store, err := database.OpenMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	chain, err := blockchain.New(&blockchain.Config{
		DB:          store,
		ChainParams: &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	miner := New(&Config{
		ChainParams:                &chaincfg.RegressionNetParams,
		BestSnapshot:               chain.BestSnapshot,
		CalcNextRequiredDifficulty: chain.CalcNextRequiredDifficulty,
		ProcessBlock:               chain.ProcessBlock,
		MiningAddr:                 "dyad1qtestaddress",
		DefaultAlgo:                pow.AlgoScrypt,
	}, corelog.Disabled)

	return miner, chain
}

func TestGenerateNBlocksStandalone(t *testing.T) {
	miner, chain := newTestMiner(t)

	hashes, err := miner.GenerateNBlocks(3, pow.AlgoScrypt)
	require.NoError(t, err)
	require.Len(t, hashes, 3)

	assert.Equal(t, int32(3), chain.BestSnapshot().Height)
	assert.Equal(t, *hashes[2], chain.BestSnapshot().Hash)

	for _, hash := range hashes {
		header, err := chain.HeaderByHash(hash)
		require.NoError(t, err)

		// A natively mined block carries a fake header and no aux pow.
		assert.False(t, header.PowData.MergeMined())
		assert.Equal(t, pow.AlgoScrypt, header.PowData.Algo)
		require.NotNil(t, header.PowData.FakeHeader)
		assert.Nil(t, header.PowData.AuxPow)
		assert.True(t, header.PowData.FakeHeader.CommitsTo(header.BlockHash()))
	}
}

func TestGenerateNBlocksMergeMined(t *testing.T) {
	miner, chain := newTestMiner(t)

	hashes, err := miner.GenerateNBlocks(2, pow.AlgoSHA256D|pow.FlagMergeMined)
	require.NoError(t, err)
	require.Len(t, hashes, 2)

	for _, hash := range hashes {
		header, err := chain.HeaderByHash(hash)
		require.NoError(t, err)

		// A merge-mined block carries an aux pow and no fake header.
		assert.True(t, header.PowData.MergeMined())
		assert.Equal(t, pow.AlgoSHA256D, header.PowData.CoreAlgo())
		require.NotNil(t, header.PowData.AuxPow)
		assert.Nil(t, header.PowData.FakeHeader)
		assert.Equal(t, chaincfg.RegressionNetParams.ChainID, header.PowData.AuxPow.ChainID)
		assert.True(t, header.PowData.AuxPow.ProvesInclusion(header.BlockHash()))
	}
}

func TestGenerateNBlocksDefaultAlgo(t *testing.T) {
	miner, chain := newTestMiner(t)

	hashes, err := miner.GenerateNBlocks(1, pow.AlgoInvalid)
	require.NoError(t, err)
	require.Len(t, hashes, 1)

	header, err := chain.HeaderByHash(hashes[0])
	require.NoError(t, err)
	assert.Equal(t, pow.AlgoScrypt, header.PowData.Algo)
}

func TestGenerateNBlocksRejectsBadAlgo(t *testing.T) {
	miner, _ := newTestMiner(t)

	_, err := miner.GenerateNBlocks(1, pow.PowAlgo(0x44))
	assert.Error(t, err)

	// The standalone algorithm cannot be merge-mined.
	_, err = miner.GenerateNBlocks(1, pow.AlgoScrypt|pow.FlagMergeMined)
	assert.Error(t, err)
}

func TestGeneratedSeedsAreDistinct(t *testing.T) {
	miner, chain := newTestMiner(t)

	hashes, err := miner.GenerateNBlocks(4, pow.AlgoScrypt)
	require.NoError(t, err)

	seen := make(map[pow.Seed]struct{}, len(hashes))
	for _, hash := range hashes {
		seed, err := chain.SeedByHash(hash)
		require.NoError(t, err)
		_, dup := seen[seed]
		assert.False(t, dup, "seed of %s repeats", hash)
		seen[seed] = struct{}{}
	}
}
