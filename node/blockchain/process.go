// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"gitlab.com/dyadchain/dyadd/node/blocknodes"
	"gitlab.com/dyadchain/dyadd/node/chaindata"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// checkHeaderContext performs the validation rules which depend on the
// block's position within the chain: the declared height, the timestamp
// against the past median time, and the difficulty against the per-algorithm
// retarget schedule.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkHeaderContext(header *wire.BlockHeader,
	prevNode *blocknodes.BlockNode, flags chaindata.BehaviorFlags,
) error {
	blockHeight := prevNode.Height() + 1
	if header.Height != blockHeight {
		str := fmt.Sprintf("block declares height %d, expected %d",
			header.Height, blockHeight)
		return chaindata.NewRuleError(chaindata.ErrBadBlockHeight, str)
	}

	// A block timestamp must not be before the median time of the last
	// several blocks.
	medianTime := prevNode.CalcPastMedianTime()
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after expected %v",
			header.Timestamp, medianTime)
		return chaindata.NewRuleError(chaindata.ErrTimeTooOld, str)
	}

	// Ensure the difficulty specified in the block header matches the
	// calculated difficulty based on the previous block and the retarget
	// rules of the block's algorithm.
	expectedDifficulty, err := b.calcNextRequiredDifficulty(prevNode,
		header.PowData.Algo, header.Timestamp)
	if err != nil {
		return err
	}
	if header.PowData.Bits != expectedDifficulty {
		str := fmt.Sprintf("block difficulty of %08x is not the expected value of %08x",
			header.PowData.Bits, expectedDifficulty)
		return chaindata.NewRuleError(chaindata.ErrUnexpectedDifficulty, str)
	}

	return nil
}

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block chain.  It includes functionality such as rejecting
// duplicate blocks, ensuring blocks follow all rules, and insertion into the
// block chain along with best chain selection and reorganization.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is on the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(header *wire.BlockHeader, flags chaindata.BehaviorFlags) (bool, error) {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := header.BlockHash()
	log.Trace().Msgf("Processing block %v", blockHash)

	// The block must not already exist.
	if b.index.HaveBlock(&blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, chaindata.NewRuleError(chaindata.ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block header and its proof
	// of work.  These need no chain state.
	err := chaindata.CheckBlockHeaderSanity(header, b.chainParams, b.timeSource(), flags)
	if err != nil {
		return false, err
	}

	// The parent must be known.  There is no orphan pool: callers are
	// expected to deliver headers parent first.
	prevNode := b.index.LookupNode(&header.PrevBlock)
	if prevNode == nil {
		str := fmt.Sprintf("previous block %s is not known", header.PrevBlock)
		return false, chaindata.NewRuleError(chaindata.ErrPreviousBlockUnknown, str)
	}

	node := blocknodes.NewBlockNode(header, prevNode)

	// A descendant of an invalid block is itself invalid.  It is still
	// recorded in the index so a later reconsider can revive the branch
	// without redelivery.
	if b.index.NodeStatus(prevNode).KnownInvalid() {
		node.SetStatus(blocknodes.StatusInvalidAncestor)
		b.index.AddNode(node)
		b.flushIndexState()
		str := fmt.Sprintf("previous block %s is known to be invalid", header.PrevBlock)
		return false, chaindata.NewRuleError(chaindata.ErrInvalidAncestorBlock, str)
	}

	if err := b.checkHeaderContext(header, prevNode, flags); err != nil {
		return false, err
	}

	// The proof was accepted, so the randomness seed is now a fixed
	// function of it.
	if err := deriveNodeSeed(node); err != nil {
		return false, err
	}
	b.index.AddNode(node)

	// Connect the passed block to the chain while respecting proper chain
	// selection according to the chain with the most proof of work.
	isMainChain, err := b.connectBestChain(node)
	if err != nil {
		return false, err
	}

	log.Debug().Msgf("Accepted block %v (height %d, algo %s, main chain %v)",
		blockHash, node.Height(), node.PowAlgo(), isMainChain)

	return isMainChain, nil
}
