// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaindata holds the stateless consensus checks and shared chain
// data types.  Everything here is free of chain state: independent candidate
// headers may be checked concurrently.
package chaindata

import (
	"fmt"
	"time"

	"gitlab.com/dyadchain/dyadd/types/chaincfg"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// MaxTimeOffsetSeconds is the maximum number of seconds a block time is
// allowed to be ahead of the current time.  This is currently 2 hours.
const MaxTimeOffsetSeconds = 2 * 60 * 60

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// performing chain processing and consensus rules checks.
type BehaviorFlags uint32

const (
	// BFNoPoWCheck may be set to indicate the proof of work check which
	// ensures a block hashes to a value less than the required target
	// will not be performed.
	BFNoPoWCheck BehaviorFlags = 1 << iota

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// CheckProofOfWork validates the header's claimed proof against its
// algorithm and difficulty.  The check needs no chain state; whether the
// bits themselves match the retarget schedule is a contextual rule checked
// by the chain.
//
// The proof rules are:
//  1. the algorithm id must resolve in the registry,
//  2. the target must be in (0, powLimitForAlgo],
//  3. a standalone header carries a fake header committing to the block
//     hash and no aux pow; its pow hash must meet the target,
//  4. a merge-mined header carries an aux pow and no fake header; the
//     external parent must meet both its own target and this header's
//     target, the branch must prove inclusion of the block's commitment,
//     and the chain id tag must be this chain's.
func CheckProofOfWork(header *wire.BlockHeader, chainCfg *chaincfg.Params, flags BehaviorFlags) error {
	powData := &header.PowData

	desc, err := pow.Describe(powData.Algo)
	if err != nil {
		str := fmt.Sprintf("block pow algo %#02x is not registered", uint8(powData.Algo))
		return NewRuleError(ErrInvalidPowAlgo, str)
	}

	// A merge-mined tag on an algorithm that cannot be merge-mined is as
	// invalid as an unknown id.
	if powData.MergeMined() && !desc.MergeMinable {
		str := fmt.Sprintf("pow algo %s cannot be merge-mined", desc.Name)
		return NewRuleError(ErrInvalidPowAlgo, str)
	}

	// The target difficulty must be larger than zero.
	target := pow.CompactToBig(powData.Bits)
	if target.Sign() <= 0 {
		str := fmt.Sprintf("block target difficulty of %064x is too low", target)
		return NewRuleError(ErrUnexpectedDifficulty, str)
	}

	// The target difficulty must be less than the maximum allowed for the
	// algorithm.
	powLimit, err := chainCfg.PowLimitForAlgo(powData.Algo)
	if err != nil {
		return NewRuleError(ErrInvalidPowAlgo, err.Error())
	}
	if target.Cmp(powLimit) > 0 {
		str := fmt.Sprintf("block target difficulty of %064x is higher than max of %064x",
			target, powLimit)
		return NewRuleError(ErrUnexpectedDifficulty, str)
	}

	if powData.MergeMined() {
		return checkAuxPow(header, chainCfg, flags)
	}
	return checkFakeHeader(header, flags)
}

// checkFakeHeader applies rule 3: the standalone proof structure and its
// hash.
func checkFakeHeader(header *wire.BlockHeader, flags BehaviorFlags) error {
	powData := &header.PowData

	if powData.AuxPow != nil {
		return NewRuleError(ErrBadFakeHeader,
			"standalone block must not carry an aux pow")
	}
	if powData.FakeHeader == nil {
		return NewRuleError(ErrBadFakeHeader,
			"standalone block carries no fake header")
	}

	blockHash := header.BlockHash()
	if !powData.FakeHeader.CommitsTo(blockHash) {
		str := fmt.Sprintf("fake header does not commit to block %s", blockHash)
		return NewRuleError(ErrBadFakeHeader, str)
	}

	if flags&BFNoPoWCheck == BFNoPoWCheck {
		return nil
	}

	powHash, err := powData.FakeHeader.PowHash(powData.CoreAlgo())
	if err != nil {
		return NewRuleError(ErrInvalidPowAlgo, err.Error())
	}

	target := pow.CompactToBig(powData.Bits)
	if hashNum := pow.HashToBig(&powHash); hashNum.Cmp(target) > 0 {
		str := fmt.Sprintf("block pow hash of %064x is higher than expected max of %064x",
			hashNum, target)
		return NewRuleError(ErrHighHash, str)
	}
	return nil
}

// checkAuxPow applies rule 4: the merge-mining proof structure, the external
// parent's proof of work, the inclusion branch, and the chain id tag.
func checkAuxPow(header *wire.BlockHeader, chainCfg *chaincfg.Params, flags BehaviorFlags) error {
	powData := &header.PowData

	if powData.FakeHeader != nil {
		return NewRuleError(ErrBadAuxPow,
			"merge-mined block must not carry a fake header")
	}
	auxpow := powData.AuxPow
	if auxpow == nil {
		return NewRuleError(ErrBadAuxPow,
			"merge-mined block carries no aux pow")
	}

	blockHash := header.BlockHash()
	if !auxpow.ProvesInclusion(blockHash) {
		str := fmt.Sprintf("aux pow branch does not prove inclusion of block %s", blockHash)
		return NewRuleError(ErrBadAuxPow, str)
	}

	// The chain id tag is an explicit consensus field.  A proof mined for
	// another chain is replay, no matter how sound the rest of it is.
	if auxpow.ChainID != chainCfg.ChainID {
		str := fmt.Sprintf("aux pow chain id %d does not match chain id %d",
			auxpow.ChainID, chainCfg.ChainID)
		return NewRuleError(ErrAuxPowChainID, str)
	}

	if flags&BFNoPoWCheck == BFNoPoWCheck {
		return nil
	}

	// The external header must satisfy its own declared target.
	parentHash := auxpow.Parent.BlockHash()
	parentNum := pow.HashToBig(&parentHash)
	parentTarget := pow.CompactToBig(auxpow.Parent.Bits)
	if parentTarget.Sign() <= 0 || parentNum.Cmp(parentTarget) > 0 {
		str := fmt.Sprintf("external parent hash of %064x misses its own target of %064x",
			parentNum, parentTarget)
		return NewRuleError(ErrBadAuxPow, str)
	}

	// And it is what must meet this chain's difficulty.
	target := pow.CompactToBig(powData.Bits)
	if parentNum.Cmp(target) > 0 {
		str := fmt.Sprintf("external parent hash of %064x is higher than expected max of %064x",
			parentNum, target)
		return NewRuleError(ErrHighHash, str)
	}
	return nil
}

// CheckBlockHeaderSanity performs the context-free checks of one header: the
// proof of work rules plus the timestamp rules.
func CheckBlockHeaderSanity(header *wire.BlockHeader, chainCfg *chaincfg.Params,
	now time.Time, flags BehaviorFlags,
) error {
	if err := CheckProofOfWork(header, chainCfg, flags); err != nil {
		return err
	}

	// A block timestamp must not have a greater precision than one second
	// and must not be too far in the future.
	timestamp := header.Timestamp
	if !timestamp.Equal(time.Unix(timestamp.Unix(), 0)) {
		str := fmt.Sprintf("block timestamp of %v has a higher precision than one second",
			timestamp)
		return NewRuleError(ErrTimeTooNew, str)
	}
	maxTimestamp := now.Add(time.Second * MaxTimeOffsetSeconds)
	if timestamp.After(maxTimestamp) {
		str := fmt.Sprintf("block timestamp of %v is too far in the future", timestamp)
		return NewRuleError(ErrTimeTooNew, str)
	}

	return nil
}
