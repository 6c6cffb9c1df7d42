// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// MaxBlockHeaderPayload is the maximum number of bytes the fixed part of a
// block header can be: version, height, timestamp plus the previous block
// and merkle root hashes.  The pow data payload comes on top of this.
const MaxBlockHeaderPayload = 12 + chainhash.HashSize*2

// BlockHeader defines information about a block in the chain.
type BlockHeader struct {
	// Version of the block.  This is not the same as the protocol
	// version.
	Version int32

	// Height of the block in the chain.
	Height int32

	// Hash of the previous block header in the block chain.
	PrevBlock chainhash.Hash

	// Merkle tree reference to the block's content.
	MerkleRoot chainhash.Hash

	// Time the block was created.  Encoded as uint32 on the wire and
	// therefore limited to 2106.
	Timestamp time.Time

	// PowData carries the algorithm tag, difficulty bits and the proof
	// payload.
	PowData PowData
}

// NewBlockHeader returns a new BlockHeader using the provided fields, with
// the proof payload left for the miner to fill in.
func NewBlockHeader(version, height int32, prevBlock, merkleRoot chainhash.Hash,
	powData PowData,
) *BlockHeader {
	// Limit the timestamp to one second precision since the protocol
	// doesn't support better.
	return &BlockHeader{
		Version:    version,
		Height:     height,
		PrevBlock:  prevBlock,
		MerkleRoot: merkleRoot,
		Timestamp:  time.Unix(time.Now().Unix(), 0),
		PowData:    powData,
	}
}

// BlockHash computes the block identifier hash.  The proof payload is
// excluded: the proof commits to this very hash, so including it would make
// the commitment circular.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, MaxBlockHeaderPayload))
	_ = WriteElements(buf, h.Version, h.Height, &h.PrevBlock, &h.MerkleRoot,
		Uint32Time(h.Timestamp))
	return chainhash.DoubleHashH(buf.Bytes())
}

// Bits returns the compact difficulty target of the header.
func (h *BlockHeader) Bits() uint32 {
	return h.PowData.Bits
}

// Copy creates a deep copy of the header so that the original does not get
// modified when the copy is manipulated.
func (h *BlockHeader) Copy() *BlockHeader {
	clone := *h
	clone.PowData = h.PowData.Copy()
	return &clone
}

// Read decodes a block header from r, suitable both for the wire and for
// long-term storage.
func (h *BlockHeader) Read(r io.Reader) error {
	err := ReadElements(r, &h.Version, &h.Height, &h.PrevBlock,
		&h.MerkleRoot, (*Uint32Time)(&h.Timestamp))
	if err != nil {
		return err
	}
	return ReadPowData(r, &h.PowData)
}

// Write encodes a block header to w, suitable both for the wire and for
// long-term storage.
func (h *BlockHeader) Write(w io.Writer) error {
	err := WriteElements(w, h.Version, h.Height, &h.PrevBlock,
		&h.MerkleRoot, Uint32Time(h.Timestamp))
	if err != nil {
		return err
	}
	return WritePowData(w, &h.PowData)
}
