// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/pow"
)

func TestPowLimitForAlgoMainNet(t *testing.T) {
	limitScrypt, err := MainNetParams.PowLimitForAlgo(pow.AlgoScrypt)
	require.NoError(t, err)
	limitSha, err := MainNetParams.PowLimitForAlgo(pow.AlgoSHA256D)
	require.NoError(t, err)

	// The scrypt limit is easier, by exactly the cross-algorithm work
	// factor.
	assert.Equal(t, 1, limitScrypt.Cmp(limitSha))
	want := new(big.Int).Rsh(limitScrypt, 10)
	assert.Equal(t, 0, limitSha.Cmp(want))

	// The compact encodings match the big.Int limits.
	assert.Equal(t, MainNetParams.PowParams.PowLimitBitsScrypt, pow.BigToCompact(limitScrypt))
	assert.Equal(t, MainNetParams.PowParams.PowLimitBitsSHA256D, pow.BigToCompact(limitSha))
}

func TestPowLimitForAlgoRegNet(t *testing.T) {
	limitScrypt, err := RegressionNetParams.PowLimitForAlgo(pow.AlgoScrypt)
	require.NoError(t, err)
	limitSha, err := RegressionNetParams.PowLimitForAlgo(pow.AlgoSHA256D)
	require.NoError(t, err)

	// Regtest deliberately levels the algorithms.
	assert.Equal(t, 0, limitScrypt.Cmp(limitSha))
}

func TestPowLimitForAlgoUnknown(t *testing.T) {
	_, err := MainNetParams.PowLimitForAlgo(pow.AlgoInvalid)
	assert.ErrorIs(t, err, pow.ErrUnknownAlgo)

	_, err = MainNetParams.PowLimitBitsForAlgo(pow.AlgoInvalid)
	assert.ErrorIs(t, err, pow.ErrUnknownAlgo)
}

func TestGenesisBlocks(t *testing.T) {
	for _, params := range []*Params{&MainNetParams, &RegressionNetParams} {
		gen := params.GenesisBlock
		assert.Equal(t, int32(0), gen.Height, params.Name)
		assert.True(t, gen.PrevBlock.IsZero(), params.Name)
		assert.False(t, gen.PowData.MergeMined(), params.Name)
		assert.NotNil(t, gen.PowData.FakeHeader, params.Name)
		assert.Equal(t, gen.BlockHash(), params.GenesisHash, params.Name)
	}

	// The two networks must not share a genesis hash.
	assert.NotEqual(t, MainNetParams.GenesisHash, RegressionNetParams.GenesisHash)
}
