// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements dual-algorithm block chain handling: header
// processing, algorithm-weighted best chain selection, reorganization, and
// manual invalidation.
package blockchain

import (
	"container/list"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/database"
	"gitlab.com/dyadchain/dyadd/node/blocknodes"
	"gitlab.com/dyadchain/dyadd/node/chaindata"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// ErrUnknownBlock is returned by operations addressed by block hash when the
// hash is not in the block index.
var ErrUnknownBlock = errors.New("block is not known")

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash       chainhash.Hash // The hash of the block.
	Height     int32          // The height of the block.
	Bits       uint32         // The difficulty bits of the block.
	Algo       pow.PowAlgo    // The algorithm byte of the block.
	Timestamp  int64          // The timestamp of the block.
	MedianTime time.Time      // Median time as per CalcPastMedianTime.
	WorkSum    *big.Int       // The total cumulative work in the best chain.
	Seed       pow.Seed       // The randomness seed of the block.
}

func newBestState(node *blocknodes.BlockNode) *BestState {
	seed, _ := node.Seed()
	return &BestState{
		Hash:       node.GetHash(),
		Height:     node.Height(),
		Bits:       node.Bits(),
		Algo:       node.PowAlgo(),
		Timestamp:  node.Timestamp(),
		MedianTime: node.CalcPastMedianTime(),
		WorkSum:    new(big.Int).Set(node.WorkSum()),
		Seed:       seed,
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// DB defines the block store which houses the block index.
	//
	// This field is required.
	DB database.BlockStore

	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// TimeSource returns the current time as seen by the node.  It is
	// used when validating block timestamps.  When nil, time.Now is used.
	TimeSource func() time.Time
}

// BlockChain provides functions for working with the dyad block chain.  It
// includes functionality such as rejecting duplicate blocks, ensuring blocks
// follow all rules, and best chain selection with reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db          database.BlockStore
	chainParams *chaincfg.Params
	timeSource  func() time.Time

	// The following fields are calculated based upon the provided chain
	// parameters.  They are also set when the instance is created and
	// can't be changed afterwards, so there is no need to protect them
	// with a separate mutex.
	minRetargetTimespan int64 // target timespan / adjustment factor
	maxRetargetTimespan int64 // target timespan * adjustment factor
	blocksPerRetarget   int32 // retarget window in blocks, per algorithm

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire block index in memory.  The block index is
	// a tree-shaped structure.
	//
	// bestChain tracks the current active chain by making use of an
	// efficient chain view into the block index.
	index     *blockIndex
	bestChain *chainView

	// These fields are related to the memory state of the chain.  They are
	// protected by the chain state lock.
	//
	// stateSnapshot caches the current best chain state for callers that
	// do not hold the chain lock.
	stateLock     sync.RWMutex
	stateSnapshot *BestState
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, chaindata.AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, chaindata.AssertError("blockchain.New chain parameters nil")
	}

	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = time.Now
	}

	params := config.ChainParams
	targetTimespan := int64(params.PowParams.TargetTimespan / time.Second)
	targetTimePerBlock := int64(params.PowParams.TargetTimePerBlock / time.Second)
	adjustmentFactor := params.PowParams.RetargetAdjustmentFactor
	b := &BlockChain{
		db:                  config.DB,
		chainParams:         params,
		timeSource:          timeSource,
		minRetargetTimespan: targetTimespan / adjustmentFactor,
		maxRetargetTimespan: targetTimespan * adjustmentFactor,
		blocksPerRetarget:   int32(targetTimespan / targetTimePerBlock),
		index:               newBlockIndex(config.DB, params),
		bestChain:           newChainView(nil),
	}

	if err := b.initChainState(); err != nil {
		return nil, err
	}

	bestNode := b.bestChain.Tip()
	log.Info().Msgf("Chain state (height %d, hash %v, work %v)",
		bestNode.Height(), bestNode.GetHash(), bestNode.WorkSum())

	return b, nil
}

// initChainState attempts to load and initialize the chain state from the
// database.  When the database does not yet contain any chain state, both it
// and the chain state are initialized to the genesis block.
func (b *BlockChain) initChainState() error {
	loaded := 0
	err := b.db.ForEachBlockNode(func(rec database.BlockNodeRecord) error {
		header := rec.Header
		var parent *blocknodes.BlockNode
		if header.Height > 0 {
			parent = b.index.LookupNode(&header.PrevBlock)
			if parent == nil {
				return chaindata.AssertError("stored block index is not " +
					"in height order")
			}
		}

		node := blocknodes.NewBlockNode(header, parent)
		node.SetStatus(blocknodes.BlockStatus(rec.Status))
		if err := deriveNodeSeed(node); err != nil {
			return err
		}
		b.index.addNode(node)
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	if loaded == 0 {
		return b.createChainState()
	}

	genesisHash := b.chainParams.GenesisHash
	if b.index.LookupNode(&genesisHash) == nil {
		return chaindata.AssertError("stored block index misses the " +
			"genesis block")
	}

	// Restore the best chain from the recorded tip, falling back to a full
	// recomputation when the record is missing or stale.
	tipHash, found, err := b.db.BestTip()
	if err != nil {
		return err
	}
	var tip *blocknodes.BlockNode
	if found {
		tip = b.index.LookupNode(&tipHash)
	}
	if tip == nil || b.index.NodeStatus(tip).KnownInvalid() {
		tip = b.findBestValidTip()
	}
	b.bestChain.SetTip(tip)
	b.setNewBestState()

	log.Debug().Msgf("Loaded %d block nodes from the block store", loaded)
	return nil
}

// createChainState initializes both the database and the chain state to the
// genesis block.  This includes creating the necessary records, so it must
// only be called on an uninitialized database.
func (b *BlockChain) createChainState() error {
	genesis := blocknodes.NewBlockNode(b.chainParams.GenesisBlock, nil)
	genesis.SetStatus(blocknodes.StatusValid)
	if err := deriveNodeSeed(genesis); err != nil {
		return err
	}

	b.index.AddNode(genesis)
	b.bestChain.SetTip(genesis)
	b.setNewBestState()

	if err := b.index.flushToDB(); err != nil {
		return err
	}
	return b.db.PutBestTip(genesis.GetHash())
}

// deriveNodeSeed computes and pins the node's randomness seed from its
// already validated proof.
func deriveNodeSeed(node *blocknodes.BlockNode) error {
	header := node.Header()
	proofHash, err := header.PowData.PowHash()
	if err != nil {
		return chaindata.AssertError("cannot derive seed: " + err.Error())
	}
	node.SetSeed(pow.DeriveSeed(proofHash))
	return nil
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.  This includes checking the various places
// a block can be: part of the main chain or part of a side chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	return b.index.HaveBlock(hash)
}

// HeaderByHash returns the block header identified by the given hash or an
// error if it doesn't exist.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHash(hash *chainhash.Hash) (*wire.BlockHeader, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %s", hash)
	}
	return node.Header(), nil
}

// MainChainHasBlock returns whether or not the block with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	node := b.index.LookupNode(hash)
	return node != nil && b.bestChain.Contains(node)
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(blockHeight int32) (chainhash.Hash, error) {
	node := b.bestChain.NodeByHeight(blockHeight)
	if node == nil {
		return chainhash.Hash{}, errors.Wrapf(ErrUnknownBlock,
			"no block at height %d in the main chain", blockHeight)
	}
	return node.GetHash(), nil
}

// BlockHeightByHash returns the height of the block with the given hash in
// the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHeightByHash(hash *chainhash.Hash) (int32, error) {
	node := b.index.LookupNode(hash)
	if node == nil || !b.bestChain.Contains(node) {
		return 0, errors.Wrapf(ErrUnknownBlock, "block %s is not in the main chain", hash)
	}
	return node.Height(), nil
}

// ChainWorkByHash returns the cumulative algorithm-weighted work from
// genesis up to and including the block with the given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) ChainWorkByHash(hash *chainhash.Hash) (*big.Int, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return nil, errors.Wrapf(ErrUnknownBlock, "block %s", hash)
	}
	return new(big.Int).Set(node.WorkSum()), nil
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// ChainParams returns the network parameters of the chain.
func (b *BlockChain) ChainParams() *chaincfg.Params {
	return b.chainParams
}

// setNewBestState rebuilds the cached best state snapshot from the current
// best chain tip.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) setNewBestState() {
	snapshot := newBestState(b.bestChain.Tip())
	b.stateLock.Lock()
	b.stateSnapshot = snapshot
	b.stateLock.Unlock()
}

// flushIndexState writes dirty index entries and the best tip record out.
// Persistence failures are deliberately not fatal: on restart the worst case
// is revalidating blocks whose status byte was lost.
func (b *BlockChain) flushIndexState() {
	if writeErr := b.index.flushToDB(); writeErr != nil {
		log.Warn().Msgf("Error flushing block index changes to disk: %v", writeErr)
	}
	if writeErr := b.db.PutBestTip(b.bestChain.Tip().GetHash()); writeErr != nil {
		log.Warn().Msgf("Error writing best tip record to disk: %v", writeErr)
	}
}

// getReorganizeNodes finds the fork point between the main chain and the
// passed node and returns a list of block nodes that would need to be
// detached from the main chain and a list of block nodes that would need to
// be attached to the fork point (which will be the end of the main chain
// after detaching the returned list of block nodes) in order to reorganize
// the chain such that the passed node is the new end of the main chain.  The
// lists will be empty if the passed node is not on a side chain.
//
// This function may modify node statuses in the block index without flushing.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) getReorganizeNodes(node *blocknodes.BlockNode) (*list.List, *list.List) {
	attachNodes := list.New()
	detachNodes := list.New()

	// Do not reorganize to a known invalid chain.  Ancestors deeper than
	// the direct parent are checked below but this is a quick check before
	// doing more unnecessary work.
	if node.Parent() != nil && b.index.NodeStatus(node.Parent()).KnownInvalid() {
		b.index.SetStatusFlags(node, blocknodes.StatusInvalidAncestor)
		return detachNodes, attachNodes
	}

	// Find the fork point (if any) adding each block to the list of nodes
	// to attach to the main tree.  Push them onto the list in reverse order
	// so they are attached in the appropriate order when iterating the list
	// later.
	forkNode := b.bestChain.FindFork(node)
	invalidChain := false
	for n := node; n != nil && n != forkNode; n = n.Parent() {
		if b.index.NodeStatus(n).KnownInvalid() {
			invalidChain = true
			break
		}
		attachNodes.PushFront(n)
	}

	// If any of the node's ancestors are invalid, unwind attachNodes,
	// marking each one as invalid for future reference.
	if invalidChain {
		var next *list.Element
		for e := attachNodes.Front(); e != nil; e = next {
			next = e.Next()
			n := attachNodes.Remove(e).(*blocknodes.BlockNode)
			b.index.SetStatusFlags(n, blocknodes.StatusInvalidAncestor)
		}
		return detachNodes, attachNodes
	}

	// Start from the end of the main chain and work backwards until the
	// common ancestor adding each block to the list of nodes to detach from
	// the main chain.
	for n := b.bestChain.Tip(); n != nil && n != forkNode; n = n.Parent() {
		detachNodes.PushBack(n)
	}

	return detachNodes, attachNodes
}

// reorganizeChain reorganizes the block chain by disconnecting the nodes in
// the detachNodes list and connecting the nodes in the attach list.  They
// typically represent the list of nodes that would be detached to the common
// fork point and the list of nodes that would be attached on top of it to
// form the new chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChain(detachNodes, attachNodes *list.List) error {
	// Nothing to do if no reorganize nodes were provided.
	if detachNodes.Len() == 0 && attachNodes.Len() == 0 {
		return nil
	}

	// Sanity check the lists: the first detach node must be the current
	// tip and the lists must join at a common fork point.
	if detachNodes.Len() != 0 {
		firstDetachNode := detachNodes.Front().Value.(*blocknodes.BlockNode)
		tipHash := b.bestChain.Tip().GetHash()
		if firstDetachNode.GetHash() != tipHash {
			return chaindata.AssertError("reorganize nodes to detach are " +
				"not for the current best chain")
		}
	}
	if attachNodes.Len() != 0 && detachNodes.Len() != 0 {
		firstAttachNode := attachNodes.Front().Value.(*blocknodes.BlockNode)
		lastDetachNode := detachNodes.Back().Value.(*blocknodes.BlockNode)
		if firstAttachNode.PrevHash() != lastDetachNode.PrevHash() {
			return chaindata.AssertError("reorganize nodes do not have the " +
				"same fork point")
		}
	}

	oldTip := b.bestChain.Tip()

	// The headers being attached were already checked for sanity when they
	// entered the index, so attaching is marking them valid and moving the
	// view.  Descendants of an invalidated block never make it into
	// attachNodes, getReorganizeNodes filters them.
	var newTip *blocknodes.BlockNode
	for e := attachNodes.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blocknodes.BlockNode)
		b.index.SetStatusFlags(n, blocknodes.StatusValid)
		newTip = n
	}
	if newTip == nil {
		// Pure rewind: the new tip is the fork point below the detached
		// nodes.
		lastDetachNode := detachNodes.Back().Value.(*blocknodes.BlockNode)
		newTip = lastDetachNode.Parent()
		if newTip == nil {
			return chaindata.AssertError("reorganize cannot detach the " +
				"genesis block")
		}
	}

	b.bestChain.SetTip(newTip)
	b.setNewBestState()

	fork := newTip.Ancestor(b.bestChain.FindFork(oldTip).Height())
	log.Info().Msgf("REORGANIZE: Chain forks at %v (height %v)", fork.GetHash(), fork.Height())
	log.Info().Msgf("REORGANIZE: Old best chain head was %v (height %v)",
		oldTip.GetHash(), oldTip.Height())
	log.Info().Msgf("REORGANIZE: New best chain head is %v (height %v, work %v)",
		newTip.GetHash(), newTip.Height(), newTip.WorkSum())

	return nil
}

// connectBestChain handles connecting the passed block node to the chain
// while respecting proper chain selection according to the algorithm-weighted
// chain work.  In the typical case, the new block simply extends the main
// chain.  However, it may also be extending (or creating) a side chain which
// may or may not end up becoming the main chain depending on which fork
// cumulatively has the most proof of work.  It returns whether or not the
// block ended up on the main chain (either due to extending the main chain or
// causing a reorganization to become the main chain).
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBestChain(node *blocknodes.BlockNode) (bool, error) {
	// We are extending the main (best) chain with a new block.  This is
	// the most common case.
	parentHash := node.PrevHash()
	bestBlockHash := b.bestChain.Tip().GetHash()
	if parentHash.IsEqual(&bestBlockHash) {
		b.index.SetStatusFlags(node, blocknodes.StatusValid)
		b.bestChain.SetTip(node)
		b.setNewBestState()
		b.flushIndexState()
		return true, nil
	}

	// We're extending (or creating) a side chain, but the cumulative work
	// for this new side chain is not enough to make it the new chain.  The
	// comparison is strict: at equal work the earliest-seen chain keeps
	// the tip.
	if node.WorkSum().Cmp(b.bestChain.Tip().WorkSum()) <= 0 {
		// Log information about how the block is forking the chain.
		fork := b.bestChain.FindFork(node)
		if fork.GetHash() == parentHash {
			log.Info().Msgf("FORK: Block %v forks the chain at height %d"+
				"/block %v, but does not cause a reorganize",
				node.GetHash(), fork.Height(), fork.GetHash())
		} else {
			log.Info().Msgf("EXTEND FORK: Block %v extends a side chain "+
				"which forks the chain at height %d/block %v",
				node.GetHash(), fork.Height(), fork.GetHash())
		}

		b.flushIndexState()
		return false, nil
	}

	// We're extending (or creating) a side chain and the cumulative work
	// for this new side chain is more than the old best chain, so this side
	// chain needs to become the main chain.  In order to accomplish that,
	// find the common ancestor of both sides of the fork, disconnect the
	// blocks that form the (now) old fork from the main chain, and attach
	// the blocks that form the new chain to the main chain starting at the
	// common ancestor (the point where the chain forked).
	detachNodes, attachNodes := b.getReorganizeNodes(node)

	log.Info().Msgf("REORGANIZE: Block %v is causing a reorganize", node.GetHash())
	err := b.reorganizeChain(detachNodes, attachNodes)

	// Either getReorganizeNodes or reorganizeChain could have made unsaved
	// changes to the block index, so flush regardless of whether there was
	// an error.
	b.flushIndexState()

	return err == nil && b.bestChain.Contains(node), err
}

// findBestValidTip scans the whole block index for the not-known-invalid node
// with the most cumulative work.  Ties keep the node that entered the index
// first.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) findBestValidTip() *blocknodes.BlockNode {
	var best *blocknodes.BlockNode
	b.index.forEachArrival(func(node *blocknodes.BlockNode) {
		if node.Status().KnownInvalid() {
			return
		}
		if best == nil || node.WorkSum().Cmp(best.WorkSum()) > 0 {
			best = node
		}
	})
	return best
}
