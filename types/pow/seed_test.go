// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// lowProofHash fabricates a proof hash with the skew real proofs of work
// carry: it clears the high-order bytes so the value is far below any
// realistic target.
func lowProofHash(algo PowAlgo, trial int) (h chainhash.Hash) {
	binary.LittleEndian.PutUint32(h[:4], uint32(trial))
	h[4] = byte(algo)
	// Bytes 24..31 are the numerically most significant ones and stay
	// zero, like in a hash that met a hard target.
	return h
}

func TestDeriveSeedDeterministic(t *testing.T) {
	proof := lowProofHash(AlgoScrypt, 7)
	assert.Equal(t, DeriveSeed(proof), DeriveSeed(proof))
	assert.NotEqual(t, DeriveSeed(proof), DeriveSeed(lowProofHash(AlgoScrypt, 8)))
}

// TestDeriveSeedNotLowBiased feeds the deriver proof hashes that are all
// numerically tiny and checks the derived seeds still reach the top of the
// value range: a derivation that leaked the proof's below-target skew would
// essentially never produce a leading 'f' hex digit.
func TestDeriveSeedNotLowBiased(t *testing.T) {
	for _, algo := range []PowAlgo{AlgoSHA256D, AlgoScrypt} {
		desc, err := Describe(algo)
		require.NoError(t, err)

		found := false
		for trial := 0; trial < 256 && !found; trial++ {
			seed := DeriveSeed(lowProofHash(algo, trial))
			found = seed.String()[0] == 'f'
		}
		assert.True(t, found, "seed was never high for algo %s", desc.Name)
	}
}
