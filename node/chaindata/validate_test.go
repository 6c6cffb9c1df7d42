// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

var regParams = &chaincfg.RegressionNetParams

// newCandidate returns an unsolved header extending the regtest genesis.
func newCandidate(algo pow.PowAlgo, mergeMined bool) *wire.BlockHeader {
	powAlgo := algo
	if mergeMined {
		powAlgo |= pow.FlagMergeMined
	}
	return &wire.BlockHeader{
		Version:    1,
		Height:     1,
		PrevBlock:  regParams.GenesisHash,
		MerkleRoot: chainhash.DoubleHashH([]byte("content")),
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		PowData: wire.PowData{
			Algo: powAlgo,
			Bits: regParams.PowParams.PowLimitBitsScrypt,
		},
	}
}

// solveStandalone attaches a fake header committing to the candidate and
// grinds it below the target.
func solveStandalone(t *testing.T, header *wire.BlockHeader) {
	t.Helper()

	fh := wire.NewFakeHeader(header.BlockHash())
	target := pow.CompactToBig(header.PowData.Bits)
	for {
		powHash, err := fh.PowHash(header.PowData.CoreAlgo())
		require.NoError(t, err)
		if pow.HashToBig(&powHash).Cmp(target) <= 0 {
			break
		}
		fh.Nonce++
	}
	header.PowData.FakeHeader = fh
}

// solveMergeMined attaches an aux pow for the candidate, mining the external
// parent below both targets.
func solveMergeMined(t *testing.T, header *wire.BlockHeader, chainID int32) {
	t.Helper()

	blockHash := header.BlockHash()
	leaves := []chainhash.Hash{
		wire.CommitmentLeaf(blockHash),
		chainhash.HashH([]byte("parent coinbase")),
	}

	aux := &wire.AuxPow{
		Parent: wire.ExternalHeader{
			Version:    2,
			MerkleRoot: chainhash.MerkleTreeRoot(leaves),
			Timestamp:  header.Timestamp,
			Bits:       header.PowData.Bits,
		},
		CoinbaseBranch: chainhash.BuildMerkleTreeProof(leaves),
		BranchIndex:    0,
		ChainID:        chainID,
	}

	target := pow.CompactToBig(header.PowData.Bits)
	for {
		parentHash := aux.Parent.BlockHash()
		if pow.HashToBig(&parentHash).Cmp(target) <= 0 {
			break
		}
		aux.Parent.Nonce++
	}
	header.PowData.AuxPow = aux
}

func assertRuleError(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.IsType(t, RuleError{}, err)
	assert.Equal(t, code, err.(RuleError).ErrorCode, "got %v", err)
}

func TestCheckProofOfWorkStandalone(t *testing.T) {
	header := newCandidate(pow.AlgoScrypt, false)

	// No fake header yet.
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrBadFakeHeader)

	solveStandalone(t, header)
	require.NoError(t, CheckProofOfWork(header, regParams, BFNone))

	// A solved proof committing to a different block is rejected.
	other := newCandidate(pow.AlgoScrypt, false)
	other.MerkleRoot = chainhash.DoubleHashH([]byte("other content"))
	solveStandalone(t, other)
	header.PowData.FakeHeader = other.PowData.FakeHeader
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrBadFakeHeader)

	// Carrying an aux pow next to a fake header is malformed.
	solveStandalone(t, header)
	header.PowData.AuxPow = &wire.AuxPow{ChainID: regParams.ChainID}
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrBadFakeHeader)
}

func TestCheckProofOfWorkTargetRules(t *testing.T) {
	header := newCandidate(pow.AlgoScrypt, false)
	solveStandalone(t, header)

	// A target above the algorithm's limit is rejected before hashing.
	header.PowData.Bits = 0x21008000
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrUnexpectedDifficulty)

	// Zero and negative targets are rejected too.
	header.PowData.Bits = 0
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrUnexpectedDifficulty)
	header.PowData.Bits = 0x00800000
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrUnexpectedDifficulty)

	// A regtest solution is (very likely) invalid for mainnet scrypt
	// difficulty.  BFNoPoWCheck skips exactly that hash check.
	header.PowData.Bits = chaincfg.MainNetParams.PowParams.PowLimitBitsScrypt
	err := CheckProofOfWork(header, &chaincfg.MainNetParams, BFNone)
	assertRuleError(t, err, ErrHighHash)
	require.NoError(t, CheckProofOfWork(header, &chaincfg.MainNetParams, BFNoPoWCheck))
}

func TestCheckProofOfWorkUnknownAlgo(t *testing.T) {
	header := newCandidate(pow.AlgoScrypt, false)
	solveStandalone(t, header)

	header.PowData.Algo = pow.PowAlgo(0x33)
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrInvalidPowAlgo)

	// The standalone algorithm cannot be merge-mined.
	header.PowData.Algo = pow.AlgoScrypt | pow.FlagMergeMined
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrInvalidPowAlgo)
}

func TestCheckProofOfWorkMergeMined(t *testing.T) {
	header := newCandidate(pow.AlgoSHA256D, true)

	// No aux pow yet.
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrBadAuxPow)

	solveMergeMined(t, header, regParams.ChainID)
	require.NoError(t, CheckProofOfWork(header, regParams, BFNone))

	// A proof for a different block does not transfer.
	other := newCandidate(pow.AlgoSHA256D, true)
	other.MerkleRoot = chainhash.DoubleHashH([]byte("other content"))
	solveMergeMined(t, other, regParams.ChainID)
	stolen := header.Copy()
	stolen.PowData.AuxPow = other.PowData.AuxPow
	assertRuleError(t, CheckProofOfWork(stolen, regParams, BFNone), ErrBadAuxPow)

	// Carrying a fake header next to an aux pow is malformed.
	malformed := header.Copy()
	malformed.PowData.FakeHeader = &wire.FakeHeader{}
	assertRuleError(t, CheckProofOfWork(malformed, regParams, BFNone), ErrBadAuxPow)
}

// TestCheckProofOfWorkReplayedChainID pins the replay rule: a proof whose
// external pow and branch are individually sound still fails when its chain
// id tag belongs to another chain.
func TestCheckProofOfWorkReplayedChainID(t *testing.T) {
	header := newCandidate(pow.AlgoSHA256D, true)
	solveMergeMined(t, header, regParams.ChainID+1)

	assert.True(t, header.PowData.AuxPow.ProvesInclusion(header.BlockHash()))
	assertRuleError(t, CheckProofOfWork(header, regParams, BFNone), ErrAuxPowChainID)
}

func TestCheckBlockHeaderSanityTimestamp(t *testing.T) {
	now := time.Unix(time.Now().Unix(), 0)

	header := newCandidate(pow.AlgoScrypt, false)
	header.Timestamp = now.Add(time.Second * (MaxTimeOffsetSeconds + 1))
	solveStandalone(t, header)
	assertRuleError(t, CheckBlockHeaderSanity(header, regParams, now, BFNone), ErrTimeTooNew)

	header = newCandidate(pow.AlgoScrypt, false)
	header.Timestamp = now
	solveStandalone(t, header)
	require.NoError(t, CheckBlockHeaderSanity(header, regParams, now, BFNone))
}
