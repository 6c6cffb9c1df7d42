// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgoToString(t *testing.T) {
	name, err := AlgoToString(AlgoSHA256D)
	require.NoError(t, err)
	assert.Equal(t, "sha256d", name)

	name, err = AlgoToString(AlgoScrypt)
	require.NoError(t, err)
	assert.Equal(t, "scrypt", name)

	// The merge-mined flag must not change resolution.
	name, err = AlgoToString(AlgoSHA256D | FlagMergeMined)
	require.NoError(t, err)
	assert.Equal(t, "sha256d", name)

	_, err = AlgoToString(AlgoInvalid)
	assert.ErrorIs(t, err, ErrUnknownAlgo)

	// The bare flag is not an algorithm either.
	_, err = AlgoToString(FlagMergeMined)
	assert.ErrorIs(t, err, ErrUnknownAlgo)
}

func TestAlgoFromString(t *testing.T) {
	algo, err := AlgoFromString("sha256d")
	require.NoError(t, err)
	assert.Equal(t, AlgoSHA256D, algo)

	algo, err = AlgoFromString("scrypt")
	require.NoError(t, err)
	assert.Equal(t, AlgoScrypt, algo)

	_, err = AlgoFromString("")
	assert.ErrorIs(t, err, ErrUnknownAlgo)

	_, err = AlgoFromString("foo")
	assert.ErrorIs(t, err, ErrUnknownAlgo)
}

func TestDescribeNeverDefaults(t *testing.T) {
	for id := 0; id < 0x80; id++ {
		algo := PowAlgo(id)
		desc, err := Describe(algo)
		if algo == AlgoSHA256D || algo == AlgoScrypt {
			require.NoError(t, err)
			assert.Equal(t, algo, desc.Algo)
			assert.NotNil(t, desc.PowHash)
			assert.NotNil(t, desc.WorkFactor)
			continue
		}
		assert.ErrorIs(t, err, ErrUnknownAlgo, "algo id %#02x must not resolve", id)
	}
}

func TestMergeMinedFlag(t *testing.T) {
	algo := AlgoSHA256D | FlagMergeMined
	assert.True(t, algo.MergeMined())
	assert.Equal(t, AlgoSHA256D, algo.Core())

	assert.False(t, AlgoScrypt.MergeMined())
	assert.Equal(t, AlgoScrypt, AlgoScrypt.Core())
}
