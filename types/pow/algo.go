// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pow holds the catalogue of supported proof of work algorithms and
// the conversions between difficulty targets and comparable chain work.
package pow

import (
	"math/big"

	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// PowAlgo identifies the proof of work algorithm of a block.  The upper bit
// is reserved as the merge-mined marker and is never part of the core
// algorithm value.
type PowAlgo uint8

const (
	// AlgoInvalid is the zero value and never describes a valid block.
	AlgoInvalid PowAlgo = 0

	// AlgoSHA256D is double-sha256, the algorithm shared with the external
	// parent chain for merge-mined blocks.
	AlgoSHA256D PowAlgo = 1

	// AlgoScrypt is the memory-hard standalone algorithm.
	AlgoScrypt PowAlgo = 2

	// FlagMergeMined marks a serialized algorithm byte as merge-mined.
	// It is a wire flag, not an algorithm.
	FlagMergeMined PowAlgo = 0x80
)

// ErrUnknownAlgo is returned when an algorithm id does not resolve in the
// registry.  Callers must treat it as a hard validation failure, never as a
// default.
var ErrUnknownAlgo = errors.New("unknown pow algorithm")

// Core strips the merge-mined flag, leaving the plain algorithm id.
func (algo PowAlgo) Core() PowAlgo {
	return algo &^ FlagMergeMined
}

// MergeMined reports whether the merge-mined flag is set.
func (algo PowAlgo) MergeMined() bool {
	return algo&FlagMergeMined == FlagMergeMined
}

// String returns the canonical lowercase name of the algorithm, or "invalid"
// for unregistered values.  Use AlgoToString when the failure must surface.
func (algo PowAlgo) String() string {
	desc, err := Describe(algo)
	if err != nil {
		return "invalid"
	}
	return desc.Name
}

// Descriptor is the immutable registry entry of one proof of work algorithm.
type Descriptor struct {
	Algo PowAlgo
	Name string

	// PowHash is the proof hash function applied to the serialized proof
	// payload.
	PowHash func([]byte) chainhash.Hash

	// WorkFactor is the fixed multiplier applied to raw target work so
	// that work amounts are directly comparable across algorithms.  The
	// standalone algorithm carries a larger factor than sha256d because a
	// unit of memory-hard hash rate is far scarcer than a unit of sha256d
	// hash rate available from the merge-mining parent chain.
	WorkFactor *big.Int

	// MergeMinable reports whether proofs for this algorithm may be
	// produced on the external parent chain.
	MergeMinable bool
}

// WorkFactorScrypt is the cross-algorithm weighting constant: one unit of
// scrypt target work counts as 1024 units of sha256d target work.  It mirrors
// the 1<<10 gap between the two mainnet pow limits.
const WorkFactorScrypt = 1 << 10

var algoRegistry = map[PowAlgo]Descriptor{
	AlgoSHA256D: {
		Algo:         AlgoSHA256D,
		Name:         "sha256d",
		PowHash:      chainhash.DoubleHashH,
		WorkFactor:   big.NewInt(1),
		MergeMinable: true,
	},
	AlgoScrypt: {
		Algo:         AlgoScrypt,
		Name:         "scrypt",
		PowHash:      chainhash.ScryptHashH,
		WorkFactor:   big.NewInt(WorkFactorScrypt),
		MergeMinable: false,
	},
}

var algoByName = func() map[string]PowAlgo {
	byName := make(map[string]PowAlgo, len(algoRegistry))
	for algo, desc := range algoRegistry {
		byName[desc.Name] = algo
	}
	return byName
}()

// Describe resolves the algorithm id in the registry.  The merge-mined flag
// is ignored during lookup; unregistered ids fail with ErrUnknownAlgo.
func Describe(algo PowAlgo) (Descriptor, error) {
	desc, ok := algoRegistry[algo.Core()]
	if !ok {
		return Descriptor{}, errors.Wrapf(ErrUnknownAlgo, "algo id %#02x", uint8(algo))
	}
	return desc, nil
}

// AlgoFromString resolves the lowercase algorithm name used on the RPC
// surface.
func AlgoFromString(name string) (PowAlgo, error) {
	algo, ok := algoByName[name]
	if !ok {
		return AlgoInvalid, errors.Wrapf(ErrUnknownAlgo, "algo name %q", name)
	}
	return algo, nil
}

// AlgoToString returns the canonical name of the algorithm or fails with
// ErrUnknownAlgo.
func AlgoToString(algo PowAlgo) (string, error) {
	desc, err := Describe(algo)
	if err != nil {
		return "", err
	}
	return desc.Name, nil
}

// RegisteredAlgos returns the ids of all registered algorithms.  The result
// order is unspecified.
func RegisteredAlgos() []PowAlgo {
	algos := make([]PowAlgo, 0, len(algoRegistry))
	for algo := range algoRegistry {
		algos = append(algos, algo)
	}
	return algos
}
