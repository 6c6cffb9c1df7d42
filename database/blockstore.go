// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package database persists the block index.  The store holds one record per
// known header plus the hash of the current best tip; everything else the
// chain needs is rebuilt in memory at startup.
package database

import (
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// BlockNodeRecord is the persisted form of one block index entry: the full
// header plus the validation status byte.
type BlockNodeRecord struct {
	Header *wire.BlockHeader
	Status byte
}

// BlockStore is the persistence interface the chain writes its block index
// through.
type BlockStore interface {
	// PutBlockNodes writes the passed records in one transaction.  A
	// record for an already stored header overwrites it, which is how
	// status changes reach disk.
	PutBlockNodes(records []BlockNodeRecord) error

	// PutBestTip records the hash of the current best chain tip.
	PutBestTip(hash chainhash.Hash) error

	// BestTip returns the recorded best tip hash, or false when the store
	// is fresh.
	BestTip() (chainhash.Hash, bool, error)

	// ForEachBlockNode invokes fn for every stored record in ascending
	// height order, so that a parent is always seen before its children.
	ForEachBlockNode(fn func(BlockNodeRecord) error) error

	Close() error
}
