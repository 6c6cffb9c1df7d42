// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/node/blocknodes"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// ErrInvalidateGenesis is returned when an invalidation targets the genesis
// block.
var ErrInvalidateGenesis = errors.New("the genesis block cannot be invalidated")

// InvalidateBlock manually marks the block with the given hash as having
// failed validation, marks all of its known descendants as having an invalid
// ancestor, and moves the best chain to the heaviest remaining valid tip.
// Invalidating a block that is already marked invalid is a no-op.
//
// This function is safe for concurrent access.
func (b *BlockChain) InvalidateBlock(hash *chainhash.Hash) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.index.LookupNode(hash)
	if node == nil {
		return errors.Wrapf(ErrUnknownBlock, "block %s", hash)
	}
	if node.Parent() == nil {
		return ErrInvalidateGenesis
	}

	if b.index.NodeStatus(node).KnownInvalid() {
		log.Debug().Msgf("Block %v is already invalid", hash)
		return nil
	}

	b.index.UnsetStatusFlags(node, blocknodes.StatusValid)
	b.index.SetStatusFlags(node, blocknodes.StatusValidateFailed)
	b.markDescendants(node, blocknodes.StatusInvalidAncestor)

	if err := b.retargetBestChain(); err != nil {
		return err
	}

	b.flushIndexState()
	log.Info().Msgf("Invalidated block %v (height %d), best chain is now %v (height %d)",
		hash, node.Height(), b.bestChain.Tip().GetHash(), b.bestChain.Tip().Height())
	return nil
}

// ReconsiderBlock removes the manual invalidation marks from the block with
// the given hash, from its ancestors, and from all of its known descendants,
// then moves the best chain to the heaviest valid tip.  Reconsidering a block
// that is not marked invalid is a no-op.
//
// This function is safe for concurrent access.
func (b *BlockChain) ReconsiderBlock(hash *chainhash.Hash) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	node := b.index.LookupNode(hash)
	if node == nil {
		return errors.Wrapf(ErrUnknownBlock, "block %s", hash)
	}

	// Clear the failure marks on the block itself and on the path back to
	// genesis, so that the revived branch is connectable again.
	failureFlags := blocknodes.StatusValidateFailed | blocknodes.StatusInvalidAncestor
	for n := node; n != nil; n = n.Parent() {
		if n.Status()&failureFlags != 0 {
			b.index.UnsetStatusFlags(n, failureFlags)
		}
	}

	// Descendants of the reconsidered block were poisoned by it; clear
	// them too.  Descendants that failed on their own, or that descend
	// from another block that failed on its own, stay invalid.  Parents
	// always enter the index before their children, so one pass in arrival
	// order settles the whole subtree.
	var known []*blocknodes.BlockNode
	b.index.forEachArrival(func(n *blocknodes.BlockNode) {
		known = append(known, n)
	})
	for _, n := range known {
		if n.Status()&blocknodes.StatusInvalidAncestor == 0 {
			continue
		}
		parent := n.Parent()
		if parent != nil && !parent.Status().KnownInvalid() {
			b.index.UnsetStatusFlags(n, blocknodes.StatusInvalidAncestor)
		}
	}

	if err := b.retargetBestChain(); err != nil {
		return err
	}

	b.flushIndexState()
	log.Info().Msgf("Reconsidered block %v (height %d), best chain is now %v (height %d)",
		hash, node.Height(), b.bestChain.Tip().GetHash(), b.bestChain.Tip().Height())
	return nil
}

// markDescendants stamps the passed status flags on every known descendant
// of node.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) markDescendants(node *blocknodes.BlockNode, flags blocknodes.BlockStatus) {
	var marked []*blocknodes.BlockNode
	b.index.forEachArrival(func(n *blocknodes.BlockNode) {
		if n == node || n.Height() <= node.Height() {
			return
		}
		if n.Ancestor(node.Height()) == node {
			marked = append(marked, n)
		}
	})
	for _, n := range marked {
		b.index.SetStatusFlags(n, flags)
	}
}

// retargetBestChain moves the best chain view to the heaviest tip that is not
// known to be invalid.  It is used after manual status changes, which can
// both dethrone the current tip and revive a heavier branch.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) retargetBestChain() error {
	best := b.findBestValidTip()
	if best == nil {
		return ErrInvalidateGenesis
	}
	if best == b.bestChain.Tip() {
		return nil
	}

	detachNodes, attachNodes := b.getReorganizeNodes(best)
	return b.reorganizeChain(detachNodes, attachNodes)
}
