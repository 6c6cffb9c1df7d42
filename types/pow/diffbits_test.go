// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactRoundTrip(t *testing.T) {
	tests := []uint32{
		0x1d00ffff, // bitcoin mainnet genesis
		0x207fffff, // regtest limit
		0x1e0ffff0,
		0x1b0404cb,
	}
	for _, bits := range tests {
		n := CompactToBig(bits)
		require.Positive(t, n.Sign())
		assert.Equal(t, bits, BigToCompact(n), "bits %08x", bits)
	}
}

func TestCalcWorkMonotone(t *testing.T) {
	// A lower target (harder difficulty) must always yield more work.
	easy := CalcWork(0x207fffff, AlgoSHA256D)
	hard := CalcWork(0x1e0ffff0, AlgoSHA256D)
	assert.Positive(t, easy.Sign())
	assert.Equal(t, 1, hard.Cmp(easy))
}

func TestCalcWorkCrossAlgoWeighting(t *testing.T) {
	// At an identical target, one scrypt block carries WorkFactorScrypt
	// times the work of a sha256d block.
	bits := uint32(0x207fffff)
	sha := CalcWork(bits, AlgoSHA256D)
	scrypt := CalcWork(bits, AlgoScrypt)

	want := new(big.Int).Mul(sha, big.NewInt(WorkFactorScrypt))
	assert.Equal(t, 0, scrypt.Cmp(want))

	// Ten scrypt blocks therefore outweigh twenty sha256d blocks.
	tenScrypt := new(big.Int).Mul(scrypt, big.NewInt(10))
	twentySha := new(big.Int).Mul(sha, big.NewInt(20))
	assert.Equal(t, 1, tenScrypt.Cmp(twentySha))
}

func TestCalcWorkDegenerateInputs(t *testing.T) {
	// Negative and zero targets carry no work.
	assert.Zero(t, CalcWork(0x00800000, AlgoSHA256D).Sign())
	assert.Zero(t, CalcWork(0, AlgoSHA256D).Sign())

	// Unregistered algorithms carry no work either.
	assert.Zero(t, CalcWork(0x207fffff, AlgoInvalid).Sign())
}
