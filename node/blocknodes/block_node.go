/*
 * Copyright (c) 2015-2017 The btcsuite developers
 * Copyright (c) 2024 The Dyad developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

// Package blocknodes models the in-memory block arena: one node per known
// header, linked to its parent, carrying the memoized cumulative work and
// the validation status.
package blocknodes

import (
	"math/big"
	"sort"
	"time"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// medianTimeBlocks is the number of previous blocks which should be used to
// calculate the median time used to validate block timestamps.
const medianTimeBlocks = 11

const (
	// StatusValid indicates that the block has been fully validated.
	StatusValid BlockStatus = 1 << iota

	// StatusValidateFailed indicates that the block has failed validation.
	StatusValidateFailed

	// StatusInvalidAncestor indicates that one of the block's ancestors
	// has failed validation, thus the block is also invalid.
	StatusInvalidAncestor

	// StatusNone indicates that the block has no validation state flags
	// set.
	//
	// NOTE: This must be defined last in order to avoid influencing iota.
	StatusNone BlockStatus = 0
)

// BlockStatus is a bit field representing the validation state of the block.
type BlockStatus byte

// KnownValid returns whether the block is known to be valid.  This will
// return false for a valid block that has not been fully validated yet.
func (status BlockStatus) KnownValid() bool {
	return status&StatusValid != 0
}

// KnownInvalid returns whether the block is known to be invalid.  This may
// be because the block itself failed validation or any of its ancestors is
// invalid.  This will return false for invalid blocks that have not been
// proven invalid yet.
func (status BlockStatus) KnownInvalid() bool {
	return status&(StatusValidateFailed|StatusInvalidAncestor) != 0
}

// BlockNode represents a block within the block chain and is primarily used
// to aid in selecting the best chain to be the main chain.  Nodes are
// immutable except for their status and the write-once randomness seed, both
// of which are protected by the chain lock.
type BlockNode struct {
	// parent is the parent block for this node.  The relation is an index
	// into the arena, not ownership: nodes never free their parents.
	parent *BlockNode

	// hash is the block identifier of this node.
	hash chainhash.Hash

	// workSum is the total amount of algorithm-weighted work in the chain
	// up to and including this node.
	workSum *big.Int

	// header holds the full header the node was built from.
	header *wire.BlockHeader

	height    int32
	timestamp int64

	// status is a bitfield representing the validation state of the
	// block.
	status BlockStatus

	// seed is the block's randomness seed, derived exactly once from the
	// validated proof material.
	seed    pow.Seed
	seedSet bool
}

// NewBlockNode returns a new block node for the given block header, linked
// to the passed parent node.  The cumulative work is computed here, once:
// parent's work plus this block's algorithm-weighted work.  Pass nil for the
// parent only when constructing the genesis node, whose work sum is the
// chain's fixed baseline.
func NewBlockNode(header *wire.BlockHeader, parent *BlockNode) *BlockNode {
	node := &BlockNode{
		parent:    parent,
		hash:      header.BlockHash(),
		workSum:   pow.CalcWork(header.PowData.Bits, header.PowData.Algo),
		header:    header.Copy(),
		height:    header.Height,
		timestamp: header.Timestamp.Unix(),
	}
	if parent != nil {
		node.workSum = node.workSum.Add(parent.workSum, node.workSum)
	}
	return node
}

// GetHash returns the block identifier of this node.
func (node *BlockNode) GetHash() chainhash.Hash { return node.hash }

// PrevHash returns the hash of the parent node.
func (node *BlockNode) PrevHash() chainhash.Hash { return node.header.PrevBlock }

// Parent returns the parent node, or nil for the genesis node.
func (node *BlockNode) Parent() *BlockNode { return node.parent }

// Height returns the height of the block in the chain.
func (node *BlockNode) Height() int32 { return node.height }

// Bits returns the difficulty bits of the block.
func (node *BlockNode) Bits() uint32 { return node.header.PowData.Bits }

// PowAlgo returns the block's algorithm byte including the merge-mined
// flag.
func (node *BlockNode) PowAlgo() pow.PowAlgo { return node.header.PowData.Algo }

// Timestamp returns the block time as a unix timestamp.
func (node *BlockNode) Timestamp() int64 { return node.timestamp }

// Status returns the validation state of the block.
func (node *BlockNode) Status() BlockStatus { return node.status }

// SetStatus replaces the validation state of the block.
func (node *BlockNode) SetStatus(status BlockStatus) { node.status = status }

// WorkSum returns the cumulative algorithm-weighted work from genesis up to
// and including this node.
func (node *BlockNode) WorkSum() *big.Int { return node.workSum }

// Header returns a copy of the header this node was built from.
func (node *BlockNode) Header() *wire.BlockHeader { return node.header.Copy() }

// Seed returns the block's randomness seed and whether it has been derived
// yet.
func (node *BlockNode) Seed() (pow.Seed, bool) { return node.seed, node.seedSet }

// SetSeed stores the derived randomness seed.  The seed is a pure function
// of committed proof material, so deriving it twice is a programming error;
// a second call with a different value panics rather than corrupting the
// block's identity.
func (node *BlockNode) SetSeed(seed pow.Seed) {
	if node.seedSet {
		if node.seed != seed {
			panic("block seed derived twice with different values")
		}
		return
	}
	node.seed = seed
	node.seedSet = true
}

// Ancestor returns the ancestor block node at the provided height by
// following the chain backwards from this node.  The returned block will be
// nil when a height is requested that is after the height of the passed
// node or is less than zero.
func (node *BlockNode) Ancestor(height int32) *BlockNode {
	if height < 0 || height > node.height {
		return nil
	}

	n := node
	for ; n != nil && n.height != height; n = n.parent {
		// Intentionally left blank.
	}

	return n
}

// RelativeAncestor returns the ancestor block node a relative 'distance'
// blocks before this node.  This is equivalent to calling Ancestor with the
// node's height minus provided distance.
func (node *BlockNode) RelativeAncestor(distance int32) *BlockNode {
	return node.Ancestor(node.height - distance)
}

// AncestorWithAlgo returns the closest ancestor, including the node itself,
// whose core algorithm matches the passed one.  It is used by the per
// algorithm difficulty retarget.
func (node *BlockNode) AncestorWithAlgo(algo pow.PowAlgo) *BlockNode {
	for n := node; n != nil; n = n.parent {
		if n.header.PowData.CoreAlgo() == algo.Core() {
			return n
		}
	}
	return nil
}

// CalcPastMedianTime calculates the median time of the previous few blocks
// prior to, and including, the block node.
func (node *BlockNode) CalcPastMedianTime() time.Time {
	// Create a slice of the previous few block timestamps used to
	// calculate the median per the number defined by the constant
	// medianTimeBlocks.
	timestamps := make([]int64, 0, medianTimeBlocks)
	for i, n := 0, node; i < medianTimeBlocks && n != nil; i, n = i+1, n.parent {
		timestamps = append(timestamps, n.timestamp)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i] < timestamps[j]
	})

	// NOTE: The consensus rules incorporate the median of an even number
	// of timestamps when there are fewer than medianTimeBlocks, matching
	// the original bitcoind behavior.
	return time.Unix(timestamps[len(timestamps)/2], 0)
}
