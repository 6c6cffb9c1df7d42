// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// regtestBits is an easy target that a few hash attempts satisfy.
const regtestBits = uint32(0x207fffff)

func hashFromByte(b byte) chainhash.Hash {
	var hash chainhash.Hash
	hash[0] = b
	return hash
}

// solveFakeHeader grinds the nonce until the fake header's pow hash is on
// the wanted side of the target.
func solveFakeHeader(t *testing.T, h *FakeHeader, algo pow.PowAlgo, bits uint32, ok bool) {
	t.Helper()

	target := pow.CompactToBig(bits)
	for {
		powHash, err := h.PowHash(algo)
		require.NoError(t, err)
		if (pow.HashToBig(&powHash).Cmp(target) <= 0) == ok {
			return
		}
		h.Nonce++
	}
}

// mineExternalParent grinds the external header's nonce until its sha256d
// hash meets the target.
func mineExternalParent(t *testing.T, h *ExternalHeader, bits uint32) {
	t.Helper()

	target := pow.CompactToBig(bits)
	for {
		powHash := h.BlockHash()
		if pow.HashToBig(&powHash).Cmp(target) <= 0 {
			return
		}
		h.Nonce++
	}
}
