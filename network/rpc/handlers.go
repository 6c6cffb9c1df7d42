// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"gitlab.com/dyadchain/dyadd/node/blockchain"
	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/chainjson"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// BlockGenerator is the mining surface the generate handler drives.
type BlockGenerator interface {
	GenerateNBlocksTo(n uint32, payToAddr string, algo pow.PowAlgo) ([]*chainhash.Hash, error)
}

// NodeRPC implements the chain-facing RPC methods.
type NodeRPC struct {
	chain  *blockchain.BlockChain
	miner  BlockGenerator
	params *chaincfg.Params
	log    zerolog.Logger
}

// NewNodeRPC returns the RPC method implementations bound to the passed
// chain and miner.
func NewNodeRPC(chain *blockchain.BlockChain, miner BlockGenerator, log zerolog.Logger) *NodeRPC {
	return &NodeRPC{
		chain:  chain,
		miner:  miner,
		params: chain.ChainParams(),
		log:    log,
	}
}

// Handlers returns the method table of the node.
func (r *NodeRPC) Handlers() map[string]CommandHandler {
	return map[string]CommandHandler{
		"getbestblockhash": r.handleGetBestBlockHash,
		"getblockcount":    r.handleGetBlockCount,
		"getblockhash":     r.handleGetBlockHash,
		"getblockinfo":     r.handleGetBlockInfo,
		"generate":         r.handleGenerate,
		"invalidateblock":  r.handleInvalidateBlock,
		"reconsiderblock":  r.handleReconsiderBlock,
	}
}

// parseHashParam decodes the single block hash parameter the invalidate,
// reconsider and getblockinfo commands take.
func parseHashParam(params []json.RawMessage) (*chainhash.Hash, *chainjson.RPCError) {
	if len(params) != 1 {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"expected a single block hash parameter")
	}

	var hashStr string
	if err := json.Unmarshal(params[0], &hashStr); err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"block hash must be a string")
	}

	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParameter,
			fmt.Sprintf("invalid block hash: %v", err))
	}
	return hash, nil
}

func (r *NodeRPC) handleGetBestBlockHash(_ []json.RawMessage) (interface{}, error) {
	return r.chain.BestSnapshot().Hash.String(), nil
}

func (r *NodeRPC) handleGetBlockCount(_ []json.RawMessage) (interface{}, error) {
	return r.chain.BestSnapshot().Height, nil
}

func (r *NodeRPC) handleGetBlockHash(params []json.RawMessage) (interface{}, error) {
	if len(params) != 1 {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"expected a single height parameter")
	}
	var height int32
	if err := json.Unmarshal(params[0], &height); err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"height must be a number")
	}

	hash, err := r.chain.BlockHashByHeight(height)
	if err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCOutOfRange,
			fmt.Sprintf("Block number out of range: %d", height))
	}
	return hash.String(), nil
}

// powDataResult flattens a header's proof section for the JSON surface.
func powDataResult(header *wire.BlockHeader) chainjson.PowDataResult {
	powData := &header.PowData
	result := chainjson.PowDataResult{
		Algo:       powData.CoreAlgo().String(),
		MergeMined: powData.MergeMined(),
		Bits:       fmt.Sprintf("%08x", powData.Bits),
	}

	if fh := powData.FakeHeader; fh != nil {
		result.FakeHeader = &chainjson.FakeHeaderResult{
			Version:    fh.Version,
			MerkleRoot: fh.MerkleRoot.String(),
			Time:       fh.Timestamp.Unix(),
			Nonce:      fh.Nonce,
		}
	}
	if aux := powData.AuxPow; aux != nil {
		parentHash := aux.Parent.BlockHash()
		branch := make([]string, 0, len(aux.CoinbaseBranch))
		for _, node := range aux.CoinbaseBranch {
			branch = append(branch, node.String())
		}
		result.AuxPow = &chainjson.AuxPowResult{
			ParentHash:   parentHash.String(),
			ParentMerkle: aux.Parent.MerkleRoot.String(),
			Branch:       branch,
			BranchIndex:  aux.BranchIndex,
			ChainID:      aux.ChainID,
		}
	}
	return result
}

func (r *NodeRPC) handleGetBlockInfo(params []json.RawMessage) (interface{}, error) {
	hash, rpcErr := parseHashParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	header, err := r.chain.HeaderByHash(hash)
	if err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCBlockNotFound, "Block not found")
	}
	seed, err := r.chain.SeedByHash(hash)
	if err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInternal, err.Error())
	}

	// Confirmations are counted from the main chain tip; a detached block
	// reports -1 like bitcoind does.
	best := r.chain.BestSnapshot()
	confirmations := int64(-1)
	if r.chain.MainChainHasBlock(hash) {
		confirmations = int64(best.Height-header.Height) + 1
	}

	result := chainjson.GetBlockInfoResult{
		Hash:          hash.String(),
		Height:        header.Height,
		Confirmations: confirmations,
		Time:          header.Timestamp.Unix(),
		PowData:       powDataResult(header),
		RngSeed:       seed.String(),
	}
	if header.Height > 0 {
		result.PreviousHash = header.PrevBlock.String()
	}

	if workSum, err := r.chain.ChainWorkByHash(hash); err == nil {
		result.ChainWork = fmt.Sprintf("%064x", workSum)
	}

	return result, nil
}

func (r *NodeRPC) handleGenerate(params []json.RawMessage) (interface{}, error) {
	// Respond with an error if there's virtually 0 chance of mining a
	// block with the CPU.
	if !r.params.PowParams.GenerateSupported {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCDifficulty,
			fmt.Sprintf("no support for `generate` on the current network, %s, "+
				"as it's unlikely to be possible to mine a block with the CPU",
				r.params.Name))
	}

	if len(params) < 1 || len(params) > 3 {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"expected numblocks with optional address and pow algo")
	}

	var numBlocks uint32
	if err := json.Unmarshal(params[0], &numBlocks); err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
			"numblocks must be a number")
	}
	if numBlocks == 0 {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInternal,
			"Please request a nonzero number of blocks to generate.")
	}

	var payToAddr string
	if len(params) >= 2 {
		if err := json.Unmarshal(params[1], &payToAddr); err != nil {
			return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
				"address must be a string")
		}
	}

	algo := pow.AlgoInvalid
	if len(params) == 3 {
		var algoStr string
		if err := json.Unmarshal(params[2], &algoStr); err != nil {
			return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParams,
				"pow algo must be a string")
		}

		// Merge-minable algorithms are merge-mined by default, matching
		// how their blocks are produced in practice.  The "-mm" suffix
		// spells that out explicitly; the registry itself only knows the
		// core names.
		explicitMM := strings.HasSuffix(algoStr, "-mm")
		coreName := strings.TrimSuffix(algoStr, "-mm")

		var err error
		algo, err = pow.AlgoFromString(coreName)
		if err != nil {
			return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParameter,
				fmt.Sprintf("invalid PowAlgo %q", algoStr))
		}

		desc, _ := pow.Describe(algo)
		if explicitMM && !desc.MergeMinable {
			return nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidParameter,
				fmt.Sprintf("invalid PowAlgo %q: %s cannot be merge-mined",
					algoStr, coreName))
		}
		if desc.MergeMinable {
			algo |= pow.FlagMergeMined
		}
	}

	blockHashes, err := r.miner.GenerateNBlocksTo(numBlocks, payToAddr, algo)
	if err != nil {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInternal, err.Error())
	}

	reply := make([]string, 0, len(blockHashes))
	for _, hash := range blockHashes {
		reply = append(reply, hash.String())
	}
	return reply, nil
}

func (r *NodeRPC) handleInvalidateBlock(params []json.RawMessage) (interface{}, error) {
	hash, rpcErr := parseHashParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := r.chain.InvalidateBlock(hash); err != nil {
		return nil, blockErrToRPC(err)
	}
	return nil, nil
}

func (r *NodeRPC) handleReconsiderBlock(params []json.RawMessage) (interface{}, error) {
	hash, rpcErr := parseHashParam(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := r.chain.ReconsiderBlock(hash); err != nil {
		return nil, blockErrToRPC(err)
	}
	return nil, nil
}

// blockErrToRPC maps chain errors of the manual invalidation surface onto
// the error codes bitcoind-compatible tooling expects.
func blockErrToRPC(err error) *chainjson.RPCError {
	switch {
	case errors.Is(err, blockchain.ErrUnknownBlock):
		return chainjson.NewRPCError(chainjson.ErrRPCBlockNotFound, "Block not found")
	case errors.Is(err, blockchain.ErrInvalidateGenesis):
		return chainjson.NewRPCError(chainjson.ErrRPCInvalidParameter, err.Error())
	}
	return chainjson.NewRPCError(chainjson.ErrRPCInternal, err.Error())
}
