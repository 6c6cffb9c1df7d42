// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"gitlab.com/dyadchain/dyadd/node/blocknodes"
	"gitlab.com/dyadchain/dyadd/node/chaindata"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// prevAlgoNode returns the closest strict ancestor of node mined with the
// passed algorithm, or nil when there is none.
func prevAlgoNode(node *blocknodes.BlockNode, algo pow.PowAlgo) *blocknodes.BlockNode {
	parent := node.Parent()
	if parent == nil {
		return nil
	}
	return parent.AncestorWithAlgo(algo)
}

// findPrevTestNetDifficulty returns the difficulty of the previous block of
// the given algorithm which did not have the special testnet minimum
// difficulty rule applied.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) findPrevTestNetDifficulty(startNode *blocknodes.BlockNode,
	algo pow.PowAlgo, limitBits uint32,
) uint32 {
	// Search backwards through the chain for the last block without
	// the special rule applied.
	iterNode := startNode
	for iterNode != nil && iterNode.Bits() == limitBits {
		iterNode = prevAlgoNode(iterNode, algo)
	}

	// Return the found difficulty or the minimum difficulty if no
	// appropriate block was found.
	lastBits := limitBits
	if iterNode != nil {
		lastBits = iterNode.Bits()
	}
	return lastBits
}

// calcNextRequiredDifficulty calculates the required difficulty for a block
// of the passed algorithm built on top of the passed previous block node.
//
// Each algorithm retargets independently over its own blocks: the schedule of
// one algorithm is never disturbed by how many blocks the other one
// contributed in between.  The difficulty is adjusted every block over a
// sliding window of the last blocksPerRetarget same-algorithm blocks, clamped
// by the retarget adjustment factor.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) calcNextRequiredDifficulty(prevNode *blocknodes.BlockNode,
	algo pow.PowAlgo, newBlockTime time.Time,
) (uint32, error) {
	limitBits, err := b.chainParams.PowLimitBitsForAlgo(algo)
	if err != nil {
		return 0, chaindata.NewRuleError(chaindata.ErrInvalidPowAlgo, err.Error())
	}
	powLimit, err := b.chainParams.PowLimitForAlgo(algo)
	if err != nil {
		return 0, chaindata.NewRuleError(chaindata.ErrInvalidPowAlgo, err.Error())
	}

	// The first block of an algorithm starts at the algorithm's pow limit.
	lastAlgoNode := prevNode.AncestorWithAlgo(algo)
	if lastAlgoNode == nil {
		return limitBits, nil
	}

	// For networks that support it, allow special reduction of the
	// required difficulty once too much time has elapsed without mining a
	// block of this algorithm.
	if b.chainParams.PowParams.ReduceMinDifficulty {
		// Return minimum difficulty when more than the desired amount
		// of time has elapsed without mining a block.
		reductionTime := int64(b.chainParams.PowParams.MinDiffReductionTime / time.Second)
		allowMinTime := lastAlgoNode.Timestamp() + reductionTime
		if newBlockTime.Unix() > allowMinTime {
			return limitBits, nil
		}

		// The block was mined within the desired timeframe, so return
		// the difficulty for the last block which did not have the
		// special minimum difficulty rule applied.
		return b.findPrevTestNetDifficulty(lastAlgoNode, algo, limitBits), nil
	}

	// Walk back up to blocksPerRetarget same-algorithm blocks to find the
	// start of the retarget window.
	firstAlgoNode := lastAlgoNode
	span := int32(0)
	for span < b.blocksPerRetarget-1 {
		prev := prevAlgoNode(firstAlgoNode, algo)
		if prev == nil {
			break
		}
		firstAlgoNode = prev
		span++
	}
	if span == 0 {
		return lastAlgoNode.Bits(), nil
	}

	// Limit the amount of adjustment that can occur to the previous
	// difficulty.  The bounds scale with the observed window since it may
	// still be shorter than a full retarget period.
	targetTimespan := span * int32(b.chainParams.PowParams.TargetTimePerBlock/time.Second)
	minTimespan := int64(targetTimespan) / b.chainParams.PowParams.RetargetAdjustmentFactor
	maxTimespan := int64(targetTimespan) * b.chainParams.PowParams.RetargetAdjustmentFactor

	actualTimespan := lastAlgoNode.Timestamp() - firstAlgoNode.Timestamp()
	adjustedTimespan := actualTimespan
	if actualTimespan < minTimespan {
		adjustedTimespan = minTimespan
	} else if actualTimespan > maxTimespan {
		adjustedTimespan = maxTimespan
	}

	// Calculate new target difficulty as:
	//  currentDifficulty * (adjustedTimespan / targetTimespan)
	// The result uses integer division which means it will be slightly
	// rounded down.
	oldTarget := pow.CompactToBig(lastAlgoNode.Bits())
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(int64(targetTimespan)))

	// Limit new value to the proof of work limit of the algorithm.
	if newTarget.Cmp(powLimit) > 0 {
		newTarget.Set(powLimit)
	}

	// Log new target difficulty and return it.  The new target logging is
	// intentionally converting the bits back to a number instead of using
	// newTarget since conversion to the compact representation loses
	// precision.
	newTargetBits := pow.BigToCompact(newTarget)
	if newTargetBits != lastAlgoNode.Bits() {
		log.Debug().Msgf("Difficulty retarget for algo %s at block height %d",
			algo, prevNode.Height()+1)
		log.Debug().Msgf("Old target %08x (%064x)", lastAlgoNode.Bits(), oldTarget)
		log.Debug().Msgf("New target %08x (%064x)", newTargetBits, pow.CompactToBig(newTargetBits))
		log.Debug().Msgf("Actual timespan %v, adjusted timespan %v, target timespan %v",
			time.Duration(actualTimespan)*time.Second,
			time.Duration(adjustedTimespan)*time.Second,
			time.Duration(targetTimespan)*time.Second)
	}

	return newTargetBits, nil
}

// CalcNextRequiredDifficulty calculates the required difficulty for a block
// of the passed algorithm built on top of the current best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty(algo pow.PowAlgo, timestamp time.Time) (uint32, error) {
	b.chainLock.Lock()
	difficulty, err := b.calcNextRequiredDifficulty(b.bestChain.Tip(), algo, timestamp)
	b.chainLock.Unlock()
	return difficulty, err
}
