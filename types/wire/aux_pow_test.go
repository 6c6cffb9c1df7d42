// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// buildAuxPow assembles an aux pow whose parent block commits to blockHash
// among a handful of unrelated leaves, then mines the parent at regtest
// difficulty.
func buildAuxPow(t *testing.T, blockHash chainhash.Hash, chainID int32) *AuxPow {
	t.Helper()

	leaves := []chainhash.Hash{
		CommitmentLeaf(blockHash),
		hashFromByte(0x01),
		hashFromByte(0x02),
	}

	aux := &AuxPow{
		Parent: ExternalHeader{
			Version:    2,
			MerkleRoot: chainhash.MerkleTreeRoot(leaves),
			Bits:       regtestBits,
		},
		CoinbaseBranch: chainhash.BuildMerkleTreeProof(leaves),
		BranchIndex:    0,
		ChainID:        chainID,
	}
	mineExternalParent(t, &aux.Parent, regtestBits)
	return aux
}

func TestAuxPowProvesInclusion(t *testing.T) {
	blockHash := hashFromByte(0x7f)
	aux := buildAuxPow(t, blockHash, 1829)

	assert.True(t, aux.ProvesInclusion(blockHash))

	// Any other block hash folds to a different root.
	assert.False(t, aux.ProvesInclusion(hashFromByte(0x80)))

	// Tampering with the branch breaks the proof.
	tampered := aux.Copy()
	tampered.CoinbaseBranch[0][0] ^= 0xff
	assert.False(t, tampered.ProvesInclusion(blockHash))

	// A wrong leaf position folds on the wrong sides.
	misplaced := aux.Copy()
	misplaced.BranchIndex = 1
	assert.False(t, misplaced.ProvesInclusion(blockHash))
}

func TestAuxPowParentPow(t *testing.T) {
	blockHash := hashFromByte(0x7f)
	aux := buildAuxPow(t, blockHash, 1829)

	// The parent block hash doubles as the sha256d proof hash.
	first := aux.Parent.BlockHash()
	assert.Equal(t, first, aux.Parent.BlockHash())

	// Changing the nonce yields a different proof hash.
	aux.Parent.Nonce++
	assert.NotEqual(t, first, aux.Parent.BlockHash())
}
