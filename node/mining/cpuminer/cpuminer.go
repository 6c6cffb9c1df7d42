// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cpuminer solves blocks with the CPU.  On the main network it is
// far too slow to be useful; it exists for the regression network, where the
// pow limits are trivial and tests need blocks of both algorithms on demand.
package cpuminer

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"gitlab.com/dyadchain/dyadd/node/blockchain"
	"gitlab.com/dyadchain/dyadd/node/chaindata"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

const (
	// maxNonce is the maximum value a nonce can be in a block header.
	maxNonce = ^uint32(0) // 2^32 - 1

	// maxExtraNonce is the maximum value an extra nonce used in the
	// content commitment can be.
	maxExtraNonce = ^uint64(0) // 2^64 - 1
)

// Config is a descriptor containing the cpu miner configuration.
type Config struct {
	// ChainParams identifies which chain parameters the cpu miner is
	// associated with.
	ChainParams *chaincfg.Params

	// BestSnapshot defines the function to use to obtain the current best
	// chain state, which templates are built on.
	BestSnapshot func() *blockchain.BestState

	// CalcNextRequiredDifficulty defines the function to use to obtain
	// the bits a new block of the given algorithm must meet.
	CalcNextRequiredDifficulty func(algo pow.PowAlgo, timestamp time.Time) (uint32, error)

	// ProcessBlock defines the function to call with any solved blocks.
	// It typically must run the provided block through the same set of
	// rules and handling as any other block coming from the network.
	ProcessBlock func(*wire.BlockHeader, chaindata.BehaviorFlags) (bool, error)

	// MiningAddr is the payment address committed into generated blocks.
	// It may be empty, in which case the subsidy of the generated blocks
	// is unclaimed.
	MiningAddr string

	// DefaultAlgo is the algorithm mined when the caller does not name
	// one.
	DefaultAlgo pow.PowAlgo

	// TimeSource returns the current time as seen by the node.  When nil,
	// time.Now is used.
	TimeSource func() time.Time
}

// CPUMiner provides facilities for solving blocks (mining) using the CPU in
// a concurrency-safe manner.
type CPUMiner struct {
	sync.Mutex
	cfg             Config
	timeSource      func() time.Time
	started         bool
	discreteMining  bool
	submitBlockLock sync.Mutex
	wg              sync.WaitGroup
	quit            chan struct{}
	log             zerolog.Logger
}

// New returns a new instance of a CPU miner for the provided configuration.
// Use Start to begin the continuous mining process.
func New(cfg *Config, log zerolog.Logger) *CPUMiner {
	timeSource := cfg.TimeSource
	if timeSource == nil {
		timeSource = time.Now
	}
	return &CPUMiner{
		cfg:        *cfg,
		timeSource: timeSource,
		log:        log,
	}
}

// resolveAlgo maps the requested algorithm onto a minable one, falling back
// to the configured default.
func (miner *CPUMiner) resolveAlgo(algo pow.PowAlgo) (pow.PowAlgo, error) {
	if algo == pow.AlgoInvalid {
		algo = miner.cfg.DefaultAlgo
	}

	desc, err := pow.Describe(algo)
	if err != nil {
		return 0, err
	}
	if algo.MergeMined() && !desc.MergeMinable {
		return 0, errors.Errorf("pow algo %s cannot be merge-mined", desc.Name)
	}
	return algo, nil
}

// contentRoot derives the content commitment of a generated block.  The
// extra nonce gives distinct commitments when the nonce space of a proof is
// exhausted.
func contentRoot(payToAddr string, height int32, extraNonce uint64) chainhash.Hash {
	var buf bytes.Buffer
	buf.WriteString(payToAddr)
	_ = binary.Write(&buf, binary.LittleEndian, height)
	_ = binary.Write(&buf, binary.LittleEndian, extraNonce)
	return chainhash.DoubleHashH(buf.Bytes())
}

// templateTimestamp picks the timestamp of a new template: the current
// second, pushed forward when the past median time demands it.
func templateTimestamp(now time.Time, medianTime time.Time) time.Time {
	timestamp := time.Unix(now.Unix(), 0)
	if !timestamp.After(medianTime) {
		timestamp = medianTime.Add(time.Second)
	}
	return timestamp
}

// buildTemplate assembles an unsolved header of the given algorithm on top
// of the current best chain tip.
func (miner *CPUMiner) buildTemplate(payToAddr string, algo pow.PowAlgo, extraNonce uint64) (*wire.BlockHeader, error) {
	best := miner.cfg.BestSnapshot()
	timestamp := templateTimestamp(miner.timeSource(), best.MedianTime)

	bits, err := miner.cfg.CalcNextRequiredDifficulty(algo, timestamp)
	if err != nil {
		return nil, err
	}

	height := best.Height + 1
	return &wire.BlockHeader{
		Version:    1,
		Height:     height,
		PrevBlock:  best.Hash,
		MerkleRoot: contentRoot(payToAddr, height, extraNonce),
		Timestamp:  timestamp,
		PowData: wire.PowData{
			Algo: algo,
			Bits: bits,
		},
	}, nil
}

// solveBlock attempts to find a proof for the passed header.  For a
// standalone algorithm it grinds the fake header nonce; for a merge-mined
// one it plays the external chain, grinding a fabricated parent header whose
// coinbase leaf commits to the block.  It returns false when the quit
// channel closes or the nonce space runs out before a solution appears.
func (miner *CPUMiner) solveBlock(header *wire.BlockHeader, quit chan struct{}) bool {
	target := pow.CompactToBig(header.PowData.Bits)
	blockHash := header.BlockHash()

	if header.PowData.MergeMined() {
		leaves := []chainhash.Hash{
			wire.CommitmentLeaf(blockHash),
			chainhash.HashH([]byte("cpuminer parent coinbase")),
		}
		aux := &wire.AuxPow{
			Parent: wire.ExternalHeader{
				Version:    1,
				MerkleRoot: chainhash.MerkleTreeRoot(leaves),
				Timestamp:  header.Timestamp,
				Bits:       header.PowData.Bits,
			},
			CoinbaseBranch: chainhash.BuildMerkleTreeProof(leaves),
			BranchIndex:    0,
			ChainID:        miner.cfg.ChainParams.ChainID,
		}

		for nonce := uint32(0); ; nonce++ {
			select {
			case <-quit:
				return false
			default:
			}

			aux.Parent.Nonce = nonce
			parentHash := aux.Parent.BlockHash()
			if pow.HashToBig(&parentHash).Cmp(target) <= 0 {
				header.PowData.AuxPow = aux
				return true
			}
			if nonce == maxNonce {
				return false
			}
		}
	}

	fh := wire.NewFakeHeader(blockHash)
	fh.Timestamp = header.Timestamp
	fh.Bits = header.PowData.Bits
	for nonce := uint32(0); ; nonce++ {
		select {
		case <-quit:
			return false
		default:
		}

		fh.Nonce = nonce
		powHash, err := fh.PowHash(header.PowData.CoreAlgo())
		if err != nil {
			miner.log.Error().Err(err).Msg("cannot hash fake header")
			return false
		}
		if pow.HashToBig(&powHash).Cmp(target) <= 0 {
			header.PowData.FakeHeader = fh
			return true
		}
		if nonce == maxNonce {
			return false
		}
	}
}

// submitBlock submits the passed block to the chain.
func (miner *CPUMiner) submitBlock(header *wire.BlockHeader) bool {
	miner.submitBlockLock.Lock()
	defer miner.submitBlockLock.Unlock()

	// Process this block using the same rules as blocks coming from other
	// nodes.  This will in turn relay it to the network like normal.
	isMainChain, err := miner.cfg.ProcessBlock(header, chaindata.BFNone)
	if err != nil {
		// Anything other than a rule violation is an unexpected error,
		// so log that error as an internal error.
		if _, ok := err.(chaindata.RuleError); !ok {
			miner.log.Error().Err(err).Msg("Unexpected error while processing block " +
				"submitted via CPU miner")
			return false
		}

		miner.log.Debug().Msgf("Block submitted via CPU miner rejected: %v", err)
		return false
	}
	if !isMainChain {
		miner.log.Debug().Msgf("Block submitted via CPU miner is stale")
		return false
	}

	blockHash := header.BlockHash()
	miner.log.Info().Msgf("Block submitted via CPU miner accepted (hash %s, algo %s, height %d)",
		blockHash, header.PowData.Algo, header.Height)
	return true
}

// mineOne builds, solves and submits a single block of the given algorithm.
func (miner *CPUMiner) mineOne(payToAddr string, algo pow.PowAlgo, quit chan struct{}) (*chainhash.Hash, error) {
	for extraNonce := uint64(0); extraNonce < maxExtraNonce; extraNonce++ {
		select {
		case <-quit:
			return nil, errors.New("miner stopped")
		default:
		}

		header, err := miner.buildTemplate(payToAddr, algo, extraNonce)
		if err != nil {
			return nil, err
		}

		if !miner.solveBlock(header, quit) {
			// Nonce space exhausted, roll the content commitment
			// and try again.
			continue
		}
		if miner.submitBlock(header) {
			blockHash := header.BlockHash()
			return &blockHash, nil
		}

		// The solved block went stale; rebuild on the new tip.
	}
	return nil, errors.New("exhausted extra nonce space without a solution")
}

// GenerateNBlocks generates the requested number of blocks of the given
// algorithm, committed to the configured mining address.  Passing
// pow.AlgoInvalid mines the configured default algorithm.
func (miner *CPUMiner) GenerateNBlocks(n uint32, algo pow.PowAlgo) ([]*chainhash.Hash, error) {
	return miner.GenerateNBlocksTo(n, miner.cfg.MiningAddr, algo)
}

// GenerateNBlocksTo generates the requested number of blocks of the given
// algorithm, committed to the passed payment address.  It is self contained
// in that it creates block templates and attempts to solve them while
// detecting when it is performing stale work.  The returned hashes are in
// the order the blocks entered the chain.
func (miner *CPUMiner) GenerateNBlocksTo(n uint32, payToAddr string, algo pow.PowAlgo) ([]*chainhash.Hash, error) {
	algo, err := miner.resolveAlgo(algo)
	if err != nil {
		return nil, err
	}

	miner.Lock()
	// Respond with an error if server is already mining.
	if miner.started || miner.discreteMining {
		miner.Unlock()
		return nil, errors.New("server is already CPU mining -- please call " +
			"`setgenerate 0` before calling discrete `generate` commands")
	}
	miner.started = true
	miner.discreteMining = true
	quit := make(chan struct{})
	miner.quit = quit
	miner.Unlock()

	defer func() {
		miner.Lock()
		miner.started = false
		miner.discreteMining = false
		miner.Unlock()
	}()

	miner.log.Debug().Msgf("Generating %d blocks (algo %s)", n, algo)

	blockHashes := make([]*chainhash.Hash, 0, n)
	for uint32(len(blockHashes)) < n {
		blockHash, err := miner.mineOne(payToAddr, algo, quit)
		if err != nil {
			return blockHashes, err
		}
		blockHashes = append(blockHashes, blockHash)
	}

	miner.log.Debug().Msgf("Generated %d blocks", n)
	return blockHashes, nil
}

// Start begins the continuous mining process with a single worker.  Calling
// this function when the CPU miner has already been started will have no
// effect.
//
// This function is safe for concurrent access.
func (miner *CPUMiner) Start() {
	miner.Lock()
	defer miner.Unlock()

	if miner.started || miner.discreteMining {
		return
	}

	quit := make(chan struct{})
	miner.quit = quit
	miner.started = true

	miner.wg.Add(1)
	go miner.generateBlocks(quit)

	miner.log.Info().Msg("CPU miner started")
}

// Stop gracefully stops the mining process by signalling the worker and
// waiting for it.  Calling this function when the CPU miner has not already
// been started will have no effect.
//
// This function is safe for concurrent access.
func (miner *CPUMiner) Stop() {
	miner.Lock()
	if !miner.started || miner.discreteMining {
		miner.Unlock()
		return
	}
	close(miner.quit)
	miner.started = false
	miner.Unlock()

	miner.wg.Wait()
	miner.log.Info().Msg("CPU miner stopped")
}

// IsMining returns whether or not the CPU miner has been started and is
// therefore currently mining.
//
// This function is safe for concurrent access.
func (miner *CPUMiner) IsMining() bool {
	miner.Lock()
	defer miner.Unlock()
	return miner.started
}

// generateBlocks is the continuous mining worker.  It must be run as a
// goroutine.
func (miner *CPUMiner) generateBlocks(quit chan struct{}) {
	defer miner.wg.Done()

	for {
		select {
		case <-quit:
			return
		default:
		}

		if _, err := miner.mineOne(miner.cfg.MiningAddr, miner.cfg.DefaultAlgo, quit); err != nil {
			select {
			case <-quit:
				return
			default:
			}
			miner.log.Error().Err(err).Msg("CPU miner failed to generate a block, retrying")
			time.Sleep(time.Second)
		}
	}
}
