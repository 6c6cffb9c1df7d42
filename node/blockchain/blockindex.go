// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"

	"gitlab.com/dyadchain/dyadd/database"
	"gitlab.com/dyadchain/dyadd/node/blocknodes"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// blockIndex provides facilities for keeping track of an in-memory index of
// the block chain.  Although the name block chain suggests a single chain of
// blocks, it is actually a tree-shaped structure where any node can have
// multiple children.  However, there can only be one active branch which does
// indeed form a chain from the tip all the way back to the genesis block.
type blockIndex struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db          database.BlockStore
	chainParams *chaincfg.Params

	sync.RWMutex
	index map[chainhash.Hash]*blocknodes.BlockNode
	dirty map[*blocknodes.BlockNode]struct{}

	// arrival keeps every node in the order it entered the index.  Best
	// chain recomputation scans it front to back, which is what makes the
	// earliest-seen chain win work ties.
	arrival []*blocknodes.BlockNode
}

// newBlockIndex returns a new empty instance of a block index.  The index will
// be dynamically populated as block nodes are loaded from the database and
// manually added.
func newBlockIndex(db database.BlockStore, chainParams *chaincfg.Params) *blockIndex {
	return &blockIndex{
		db:          db,
		chainParams: chainParams,
		index:       make(map[chainhash.Hash]*blocknodes.BlockNode),
		dirty:       make(map[*blocknodes.BlockNode]struct{}),
	}
}

// HaveBlock returns whether or not the block index contains the provided hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) HaveBlock(hash *chainhash.Hash) bool {
	bi.RLock()
	_, hasBlock := bi.index[*hash]
	bi.RUnlock()
	return hasBlock
}

// LookupNode returns the block node identified by the provided hash.  It will
// return nil if there is no entry for the hash.
//
// This function is safe for concurrent access.
func (bi *blockIndex) LookupNode(hash *chainhash.Hash) *blocknodes.BlockNode {
	bi.RLock()
	node := bi.index[*hash]
	bi.RUnlock()
	return node
}

// AddNode adds the provided node to the block index and marks it as dirty.
// Duplicate entries are not checked so it is up to caller to avoid adding them.
//
// This function is safe for concurrent access.
func (bi *blockIndex) AddNode(node *blocknodes.BlockNode) {
	bi.Lock()
	bi.addNode(node)
	bi.dirty[node] = struct{}{}
	bi.Unlock()
}

// addNode adds the provided node to the block index, but does not mark it as
// dirty.  This can be used while initializing the block index.
//
// This function is NOT safe for concurrent access.
func (bi *blockIndex) addNode(node *blocknodes.BlockNode) {
	bi.index[node.GetHash()] = node
	bi.arrival = append(bi.arrival, node)
}

// NodeStatus provides concurrent-safe access to the status field of a node.
//
// This function is safe for concurrent access.
func (bi *blockIndex) NodeStatus(node *blocknodes.BlockNode) blocknodes.BlockStatus {
	bi.RLock()
	status := node.Status()
	bi.RUnlock()
	return status
}

// SetStatusFlags flips the provided status flags on the block node to on,
// regardless of whether they were on or off previously.  This does not unset
// any flags currently on.
//
// This function is safe for concurrent access.
func (bi *blockIndex) SetStatusFlags(node *blocknodes.BlockNode, flags blocknodes.BlockStatus) {
	bi.Lock()
	status := node.Status()
	status |= flags
	node.SetStatus(status)
	bi.dirty[node] = struct{}{}
	bi.Unlock()
}

// UnsetStatusFlags flips the provided status flags on the block node to off,
// regardless of whether they were on or off previously.
//
// This function is safe for concurrent access.
func (bi *blockIndex) UnsetStatusFlags(node *blocknodes.BlockNode, flags blocknodes.BlockStatus) {
	bi.Lock()
	status := node.Status()
	status &^= flags
	node.SetStatus(status)
	bi.dirty[node] = struct{}{}
	bi.Unlock()
}

// forEachArrival invokes fn for every known node in insertion order.
//
// This function is safe for concurrent access, though fn must not call back
// into the index.
func (bi *blockIndex) forEachArrival(fn func(node *blocknodes.BlockNode)) {
	bi.RLock()
	for _, node := range bi.arrival {
		fn(node)
	}
	bi.RUnlock()
}

// flushToDB writes all dirty block nodes to the database.  If all writes
// succeed, this clears the dirty set.
func (bi *blockIndex) flushToDB() error {
	bi.Lock()
	if len(bi.dirty) == 0 {
		bi.Unlock()
		return nil
	}

	records := make([]database.BlockNodeRecord, 0, len(bi.dirty))
	for node := range bi.dirty {
		records = append(records, database.BlockNodeRecord{
			Header: node.Header(),
			Status: byte(node.Status()),
		})
	}

	err := bi.db.PutBlockNodes(records)

	// If write was successful, clear the dirty set.
	if err == nil {
		bi.dirty = make(map[*blocknodes.BlockNode]struct{})
	}

	bi.Unlock()
	return err
}
