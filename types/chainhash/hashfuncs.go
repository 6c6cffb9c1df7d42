// Copyright (c) 2015 The Decred developers
// Copyright (c) 2016-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/scrypt"
)

// HashB calculates hash(b) and returns the resulting bytes.
func HashB(b []byte) []byte {
	hash := sha256.Sum256(b)
	return hash[:]
}

// HashH calculates hash(b) and returns the resulting bytes as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB calculates hash(hash(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates hash(hash(b)) and returns the resulting bytes as a
// Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// scrypt cost parameters for the memory-hard proof of work function.
// 1024/1/1 matches the classic litecoin-family parameterization: 128 KiB
// of scratch memory per hash invocation.
const (
	scryptN = 1024
	scryptR = 1
	scryptP = 1
)

// ScryptHashH calculates the memory-hard scrypt hash of b, using b itself as
// the salt, and returns the resulting bytes as a Hash.  This is the proof of
// work function for standalone (non merge-mined) blocks.
func ScryptHashH(b []byte) Hash {
	// scrypt.Key only fails on invalid cost parameters, and ours are fixed
	// compile-time constants.
	sum, err := scrypt.Key(b, b, scryptN, scryptR, scryptP, HashSize)
	if err != nil {
		panic("invalid fixed scrypt parameters: " + err.Error())
	}

	var hash Hash
	copy(hash[:], sum)
	return hash
}
