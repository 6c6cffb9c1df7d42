// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pow

import (
	"golang.org/x/crypto/blake2b"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// SeedSize is the width of a per-block randomness seed in bytes.
const SeedSize = 32

// Seed is the per-block randomness seed derived from committed proof
// material.  It is immutable once computed.
type Seed [SeedSize]byte

// String returns the seed as a plain hexadecimal string.
func (s Seed) String() string {
	return chainhash.Hash(s).String()
}

// DeriveSeed mixes an already-validated proof hash into a randomness seed.
//
// A raw proof of work hash is below its target by construction and therefore
// heavily skewed toward numerically small values.  Running the proof through
// an unrelated second hash function removes that skew: the output of blake2b
// on a fixed-width input is uniform over the full range regardless of the
// input distribution.
func DeriveSeed(proofHash chainhash.Hash) Seed {
	return Seed(blake2b.Sum256(proofHash[:]))
}
