// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// FakeHeaderLen is the serialized size of a fake header: version 4 bytes +
// prev and merkle root hashes + timestamp, bits and nonce 4 bytes each.
const FakeHeaderLen = 16 + chainhash.HashSize*2

// FakeHeader is the proxy structure solved directly by standalone miners.
// It has the layout of a plain 80-byte block header so that stock mining
// hardware and software can grind it, but it never becomes a block itself:
// its merkle root field carries the hash of the real block it vouches for.
type FakeHeader struct {
	Version int32

	// PrevBlock is unused by consensus and kept zero by miners.
	PrevBlock chainhash.Hash

	// MerkleRoot commits to the real block: it must equal the block hash
	// the proof is claimed for.
	MerkleRoot chainhash.Hash

	Timestamp time.Time
	Bits      uint32
	Nonce     uint32
}

// NewFakeHeader returns a fake header committing to the passed block hash.
func NewFakeHeader(blockHash chainhash.Hash) *FakeHeader {
	return &FakeHeader{
		MerkleRoot: blockHash,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
	}
}

// CommitsTo reports whether the fake header vouches for the passed block
// hash.
func (h *FakeHeader) CommitsTo(blockHash chainhash.Hash) bool {
	return h.MerkleRoot == blockHash
}

// PowHash hashes the serialized fake header with the passed algorithm's hash
// function.  It is the value compared against the difficulty target.
func (h *FakeHeader) PowHash(algo pow.PowAlgo) (chainhash.Hash, error) {
	desc, err := pow.Describe(algo)
	if err != nil {
		return chainhash.Hash{}, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, FakeHeaderLen))
	// Writing to a bytes.Buffer cannot fail.
	_ = writeFakeHeader(buf, h)
	return desc.PowHash(buf.Bytes()), nil
}

// Copy creates a deep copy of the fake header.
func (h *FakeHeader) Copy() *FakeHeader {
	clone := *h
	return &clone
}

func readFakeHeader(r io.Reader, h *FakeHeader) error {
	return ReadElements(r, &h.Version, &h.PrevBlock, &h.MerkleRoot,
		(*Uint32Time)(&h.Timestamp), &h.Bits, &h.Nonce)
}

func writeFakeHeader(w io.Writer, h *FakeHeader) error {
	return WriteElements(w, h.Version, &h.PrevBlock, &h.MerkleRoot,
		Uint32Time(h.Timestamp), h.Bits, h.Nonce)
}
