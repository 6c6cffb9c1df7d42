// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// SeedByHash returns the randomness seed of the block with the given hash.
// The seed is derived once, when the block's proof is accepted, and never
// changes afterwards; consumers may cache it freely.
//
// This function is safe for concurrent access.
func (b *BlockChain) SeedByHash(hash *chainhash.Hash) (pow.Seed, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return pow.Seed{}, errors.Wrapf(ErrUnknownBlock, "block %s", hash)
	}

	seed, ok := node.Seed()
	if !ok {
		// Every indexed node gets its seed pinned on acceptance.
		return pow.Seed{}, errors.Errorf("block %s has no derived seed", hash)
	}
	return seed, nil
}
