// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/pow"
)

func TestFakeHeaderCommitment(t *testing.T) {
	blockHash := hashFromByte(0x42)

	fh := NewFakeHeader(blockHash)
	assert.True(t, fh.CommitsTo(blockHash))
	assert.False(t, fh.CommitsTo(hashFromByte(0x43)))

	// A solved header committing to some other hash stays a valid proof
	// only for that other hash.
	other := NewFakeHeader(hashFromByte(0x43))
	solveFakeHeader(t, other, pow.AlgoScrypt, regtestBits, true)
	assert.False(t, other.CommitsTo(blockHash))
}

func TestFakeHeaderPowHash(t *testing.T) {
	fh := NewFakeHeader(hashFromByte(0x42))
	fh.Timestamp = time.Unix(1234, 0)

	// Not solved yet, force a miss first, then solve.
	solveFakeHeader(t, fh, pow.AlgoScrypt, regtestBits, false)
	missNonce := fh.Nonce
	solveFakeHeader(t, fh, pow.AlgoScrypt, regtestBits, true)

	powHash, err := fh.PowHash(pow.AlgoScrypt)
	require.NoError(t, err)
	target := pow.CompactToBig(regtestBits)
	assert.LessOrEqual(t, pow.HashToBig(&powHash).Cmp(target), 0)
	assert.NotEqual(t, missNonce, fh.Nonce)

	// The same solution is (very likely) invalid for a harder target.
	mainnetBits := uint32(0x1e0ffff0)
	hardTarget := pow.CompactToBig(mainnetBits)
	assert.Greater(t, pow.HashToBig(&powHash).Cmp(hardTarget), 0)

	// The proof hash depends on the algorithm.
	shaHash, err := fh.PowHash(pow.AlgoSHA256D)
	require.NoError(t, err)
	assert.NotEqual(t, powHash, shaHash)

	// An unregistered algorithm never hashes.
	_, err = fh.PowHash(pow.AlgoInvalid)
	assert.ErrorIs(t, err, pow.ErrUnknownAlgo)
}
